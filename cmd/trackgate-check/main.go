// Command trackgate-check probes a running trackgate instance and prints its
// health in plain text. It exits non-zero when the instance is unhealthy or
// unreachable, which makes it usable as a container health check.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/aevon-lab/trackgate/internal/server"
)

func main() {
	url := flag.String("url", "http://127.0.0.1:8080/health", "Health endpoint URL")
	timeout := flag.Duration("timeout", 3*time.Second, "Request timeout")
	flag.Parse()

	os.Exit(run(*url, *timeout, os.Stdout))
}

func run(url string, timeout time.Duration, out io.Writer) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return 2
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(out, "unreachable: %v\n", err)
		return 2
	}
	defer resp.Body.Close()

	var health server.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		fmt.Fprintf(out, "invalid health response (HTTP %d): %v\n", resp.StatusCode, err)
		return 2
	}

	printHealth(out, health)
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}

func printHealth(out io.Writer, h server.HealthResponse) {
	fmt.Fprintf(out, "status:       %s\n", h.Status)
	fmt.Fprintf(out, "schema:       loaded=%t events=%d\n", h.Schema.Loaded, h.Schema.Events)
	fmt.Fprintf(out, "delivery log: %s\n", h.DeliveryLog)

	names := make([]string, 0, len(h.Providers))
	for name := range h.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := "disabled"
		if h.Providers[name] {
			state = "enabled"
		}
		fmt.Fprintf(out, "provider:     %s %s\n", name, state)
	}
	if h.Error != "" {
		fmt.Fprintf(out, "error:        %s\n", h.Error)
	}
}
