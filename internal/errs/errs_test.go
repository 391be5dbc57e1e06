package errs

import (
	"errors"
	"log/slog"
	"testing"
)

var errRoot = errors.New("root cause")

func TestWrapPreservesChain(t *testing.T) {
	err := Wrapf(Wrap(errRoot, "load claim"), "decide claim %s", "01J")
	if !errors.Is(err, errRoot) {
		t.Fatalf("errors.Is() = false, want true")
	}
	if err.Error() != "decide claim 01J: load claim: root cause" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if Wrap(nil, "noop") != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
}

func TestTransientMarksChain(t *testing.T) {
	err := Wrap(Transient(errRoot), "generate policy number")
	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false, want true")
	}
	if !errors.Is(err, errRoot) {
		t.Fatalf("transient wrapper lost the root cause")
	}
	if IsTransient(errRoot) {
		t.Fatalf("IsTransient(plain) = true, want false")
	}

	twice := Transient(Transient(errRoot))
	var te *TransientError
	if !errors.As(twice, &te) || errors.Unwrap(te) != errRoot {
		t.Fatalf("Transient() should not double wrap, got %#v", twice)
	}
}

func TestLoggableIncludesTransientFlag(t *testing.T) {
	value := Loggable(Transient(errRoot)).LogValue()
	if value.Kind() != slog.KindGroup {
		t.Fatalf("LogValue kind = %v, want group", value.Kind())
	}

	found := false
	for _, attr := range value.Group() {
		if attr.Key == "transient" && attr.Value.Bool() {
			found = true
		}
	}
	if !found {
		t.Fatalf("transient attr missing: %v", value.Group())
	}
}
