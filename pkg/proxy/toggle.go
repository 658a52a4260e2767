package proxy

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Toggle decides per request whether telemetry observes it. The
// transport treats an error or panic from Enabled as enabled.
type Toggle interface {
	Enabled(r *http.Request) (bool, error)
}

// ToggleFunc adapts a function to the Toggle interface.
type ToggleFunc func(r *http.Request) (bool, error)

// Enabled calls f.
func (f ToggleFunc) Enabled(r *http.Request) (bool, error) {
	return f(r)
}

// StaticToggle is always on or always off.
type StaticToggle bool

// Enabled reports the fixed value.
func (t StaticToggle) Enabled(*http.Request) (bool, error) {
	return bool(t), nil
}

// EnvToggle reads a boolean environment variable on every call, so
// the flag can change without a restart. Unset or empty counts as
// enabled; an unparseable value counts as enabled and surfaces an
// error for the transport to log.
type EnvToggle struct {
	// Key is the environment variable name.
	Key string
}

// Enabled reports the variable's current value.
func (t EnvToggle) Enabled(*http.Request) (bool, error) {
	raw, ok := os.LookupEnv(t.Key)
	if !ok || strings.TrimSpace(raw) == "" {
		return true, nil
	}

	enabled, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return true, fmt.Errorf("invalid boolean %q in %s: %w", raw, t.Key, err)
	}

	return enabled, nil
}
