package schema

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"
	"golang.org/x/sync/singleflight"
)

// celGuards evaluates guards whose Expr is a CEL expression over `props`,
// e.g. `props.amount > 0 && props.currency in ["EUR", "USD"]`.
type celGuards struct {
	envOnce sync.Once
	env     *cel.Env
	envErr  error

	// Cache of compiled programs keyed by expression
	mu           sync.RWMutex
	programs     map[string]cel.Program
	compileGroup singleflight.Group // Dedupe concurrent compilation
}

func newCELGuards() *celGuards {
	return &celGuards{
		programs: make(map[string]cel.Program),
	}
}

func (c *celGuards) environment() (*cel.Env, error) {
	c.envOnce.Do(func() {
		c.env, c.envErr = cel.NewEnv(
			cel.Variable("props", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	return c.env, c.envErr
}

func (c *celGuards) check(g Guard) error {
	_, err := c.program(g.Expr)
	return err
}

// evaluate runs the expression. Runtime errors (for example a missing key on an
// optional property) count as a failed guard, not as a fault.
func (c *celGuards) evaluate(ctx context.Context, g Guard, props map[string]interface{}) (bool, error) {
	prg, err := c.program(g.Expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.ContextEval(ctx, map[string]interface{}{"props": props})
	if err != nil {
		slog.Debug("CEL guard evaluation error", "guard", g.Name, "expr", g.Expr, "error", err)
		return false, nil
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q did not evaluate to bool", g.Expr)
	}
	return val, nil
}

// program retrieves or compiles an expression.
// Uses singleflight to dedupe concurrent compilation of the same expression.
func (c *celGuards) program(expr string) (cel.Program, error) {
	if expr == "" {
		return nil, fmt.Errorf("cel guard requires 'expr'")
	}

	c.mu.RLock()
	if prg, exists := c.programs[expr]; exists {
		c.mu.RUnlock()
		return prg, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.compileGroup.Do(expr, func() (interface{}, error) {
		c.mu.RLock()
		if prg, exists := c.programs[expr]; exists {
			c.mu.RUnlock()
			return prg, nil
		}
		c.mu.RUnlock()

		env, err := c.environment()
		if err != nil {
			return nil, fmt.Errorf("cel environment: %w", err)
		}
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
		}
		if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
			return nil, fmt.Errorf("expression %q must return bool, got %s", expr, ast.OutputType())
		}
		prg, err := env.Program(ast,
			cel.InterruptCheckFrequency(100),
			cel.CostLimit(10000),
		)
		if err != nil {
			return nil, fmt.Errorf("program %q: %w", expr, err)
		}

		c.mu.Lock()
		c.programs[expr] = prg
		c.mu.Unlock()

		return prg, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(cel.Program), nil
}
