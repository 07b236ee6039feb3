package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode int
		wantOut  []string
	}{
		{
			name:     "healthy",
			status:   http.StatusOK,
			body:     `{"status":"healthy","providers":{"webhook":false,"posthog":true},"schema":{"loaded":true,"events":3},"delivery_log":"disabled"}`,
			wantCode: 0,
			wantOut:  []string{"status:       healthy", "events=3", "provider:     posthog enabled", "provider:     webhook disabled"},
		},
		{
			name:     "unhealthy",
			status:   http.StatusServiceUnavailable,
			body:     `{"status":"unhealthy","providers":{},"schema":{"loaded":true,"events":1},"delivery_log":"unreachable","error":"delivery log unreachable"}`,
			wantCode: 1,
			wantOut:  []string{"delivery log: unreachable", "error:        delivery log unreachable"},
		},
		{
			name:     "garbage",
			status:   http.StatusOK,
			body:     `<html>`,
			wantCode: 2,
			wantOut:  []string{"invalid health response"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out bytes.Buffer
			code := run(srv.URL, time.Second, &out)
			require.Equal(t, tt.wantCode, code)
			for _, want := range tt.wantOut {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestRun_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var out bytes.Buffer
	assert.Equal(t, 2, run(url, 200*time.Millisecond, &out))
	assert.Contains(t, out.String(), "unreachable")
}
