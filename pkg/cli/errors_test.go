package cli

import (
	"errors"
	"testing"
)

func TestConfigError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := NewConfigError("upstream.base_url", "missing required field")

		want := "config error in upstream.base_url: missing required field"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("without field", func(t *testing.T) {
		err := NewConfigError("", "failed to load config")

		want := "config error: failed to load config"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})
}

func TestCommandError(t *testing.T) {
	underlying := errors.New("upstream unreachable")
	err := NewCommandError("run", underlying)

	want := "command run failed: upstream unreachable"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if !errors.Is(err, underlying) {
		t.Error("errors.Is should see through CommandError")
	}
	if err.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), underlying)
	}
}
