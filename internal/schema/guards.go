package schema

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Built-in guard names.
const (
	GuardEmail          = "email"
	GuardPositive       = "positive"
	GuardNonNegative    = "non_negative"
	GuardCurrencyAmount = "currency_amount"
	GuardNonEmpty       = "non_empty"
	GuardURL            = "url"
	GuardMaxLength      = "max_length"
	GuardPattern        = "pattern"
	GuardCEL            = "cel"
)

// GuardFunc evaluates a guard against the normalized property set.
// A non-nil error means the guard could not be evaluated at all.
type GuardFunc func(ctx context.Context, g Guard, props map[string]interface{}) (bool, error)

// guardEntry pairs a predicate with an optional load-time check of its declaration.
type guardEntry struct {
	eval  GuardFunc
	check func(g Guard) error
}

// GuardRegistry resolves guard names to predicate implementations.
type GuardRegistry struct {
	mu      sync.RWMutex
	entries map[string]guardEntry
	cel     *celGuards
	regexps sync.Map // pattern -> *regexp.Regexp
}

// NewGuardRegistry creates a registry with every built-in guard registered.
func NewGuardRegistry() *GuardRegistry {
	r := &GuardRegistry{
		entries: make(map[string]guardEntry),
		cel:     newCELGuards(),
	}

	r.register(GuardEmail, fieldGuard(isEmail), requireProperty)
	r.register(GuardPositive, fieldGuard(decimalGuard(func(d decimal.Decimal) bool { return d.IsPositive() })), requireProperty)
	r.register(GuardNonNegative, fieldGuard(decimalGuard(func(d decimal.Decimal) bool { return !d.IsNegative() })), requireProperty)
	r.register(GuardCurrencyAmount, fieldGuard(decimalGuard(isCurrencyAmount)), requireProperty)
	r.register(GuardNonEmpty, fieldGuard(isNonEmpty), requireProperty)
	r.register(GuardURL, fieldGuard(isHTTPURL), requireProperty)
	r.register(GuardMaxLength, r.maxLength, checkMaxLength)
	r.register(GuardPattern, r.pattern, r.checkPattern)
	r.register(GuardCEL, r.cel.evaluate, r.cel.check)

	return r
}

// Register adds or replaces a guard implementation.
func (r *GuardRegistry) Register(name string, fn GuardFunc) {
	r.register(name, fn, nil)
}

func (r *GuardRegistry) register(name string, fn GuardFunc, check func(Guard) error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[name] = guardEntry{eval: fn, check: check}
}

func (r *GuardRegistry) lookup(name string) (guardEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered guard names.
func (r *GuardRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Evaluate runs the guard. Unknown names return ErrGuardNotImplemented.
func (r *GuardRegistry) Evaluate(ctx context.Context, g Guard, props map[string]interface{}) (bool, error) {
	e, ok := r.lookup(g.Name)
	if !ok {
		return false, ErrGuardNotImplemented
	}
	return e.eval(ctx, g, props)
}

// Check verifies a guard declaration can be evaluated.
func (r *GuardRegistry) Check(g Guard) error {
	e, ok := r.lookup(g.Name)
	if !ok {
		return ErrGuardNotImplemented
	}
	if e.check == nil {
		return nil
	}
	return e.check(g)
}

func requireProperty(g Guard) error {
	if g.Property == "" {
		return fmt.Errorf("guard %q requires a property", g.Name)
	}
	return nil
}

// fieldGuard adapts a single-value predicate. Absent properties pass; presence
// is the job of the required flag.
func fieldGuard(pred func(value interface{}) bool) GuardFunc {
	return func(_ context.Context, g Guard, props map[string]interface{}) (bool, error) {
		if g.Property == "" {
			return false, fmt.Errorf("guard %q requires a property", g.Name)
		}
		value, ok := props[g.Property]
		if !ok || value == nil {
			return true, nil
		}
		return pred(value), nil
	}
}

func isEmail(value interface{}) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && addr.Name == ""
}

func isNonEmpty(value interface{}) bool {
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) != ""
}

func isHTTPURL(value interface{}) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func decimalGuard(pred func(decimal.Decimal) bool) func(value interface{}) bool {
	return func(value interface{}) bool {
		f, ok := toFloat(value)
		if !ok {
			return false
		}
		return pred(decimal.NewFromFloat(f.(float64)))
	}
}

// isCurrencyAmount accepts non-negative amounts with at most two decimal places.
func isCurrencyAmount(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(2))
}

func checkMaxLength(g Guard) error {
	if err := requireProperty(g); err != nil {
		return err
	}
	if _, err := intParam(g, "max"); err != nil {
		return err
	}
	return nil
}

func (r *GuardRegistry) maxLength(ctx context.Context, g Guard, props map[string]interface{}) (bool, error) {
	max, err := intParam(g, "max")
	if err != nil {
		return false, err
	}
	return fieldGuard(func(value interface{}) bool {
		s, ok := value.(string)
		return ok && utf8.RuneCountInString(s) <= max
	})(ctx, g, props)
}

func (r *GuardRegistry) checkPattern(g Guard) error {
	if err := requireProperty(g); err != nil {
		return err
	}
	_, err := r.compilePattern(g)
	return err
}

func (r *GuardRegistry) pattern(ctx context.Context, g Guard, props map[string]interface{}) (bool, error) {
	re, err := r.compilePattern(g)
	if err != nil {
		return false, err
	}
	return fieldGuard(func(value interface{}) bool {
		s, ok := value.(string)
		return ok && re.MatchString(s)
	})(ctx, g, props)
}

func (r *GuardRegistry) compilePattern(g Guard) (*regexp.Regexp, error) {
	raw, ok := g.Params["regex"].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("guard %q requires string param 'regex'", g.Name)
	}
	if cached, ok := r.regexps.Load(raw); ok {
		return cached.(*regexp.Regexp), nil
	}
	if len(raw) > 1000 {
		return nil, fmt.Errorf("pattern too long (max 1000 chars)")
	}
	re, err := regexp.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	r.regexps.Store(raw, re)
	return re, nil
}

func intParam(g Guard, key string) (int, error) {
	raw, ok := g.Params[key]
	if !ok {
		return 0, fmt.Errorf("guard %q requires param %q", g.Name, key)
	}
	f, ok := toFloat(raw)
	if !ok || f.(float64) < 0 || f.(float64) != float64(int(f.(float64))) {
		return 0, fmt.Errorf("guard %q param %q must be a non-negative integer", g.Name, key)
	}
	return int(f.(float64)), nil
}
