package monitoring

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	// Save original logger
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// Now set to nil and verify it doesn't call our logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestSetLogWriters_Streams(t *testing.T) {
	defer SetLogWriters(nil, nil, nil)

	var ops, diag, trace bytes.Buffer
	SetLogWriters(&ops, &diag, &trace)

	Opsf("rejected frame stream=%s", "a")
	Diagf("stream ready id=%s", "b")
	Tracef("frame=%d", 3)

	if !strings.Contains(ops.String(), "rejected frame stream=a") {
		t.Errorf("ops stream = %q", ops.String())
	}
	if !strings.Contains(diag.String(), "stream ready id=b") {
		t.Errorf("diag stream = %q", diag.String())
	}
	if !strings.Contains(trace.String(), "frame=3") {
		t.Errorf("trace stream = %q", trace.String())
	}
	if !strings.HasPrefix(diag.String(), "[wmv] ") {
		t.Errorf("diag stream missing prefix: %q", diag.String())
	}
	if !TraceEnabled() {
		t.Error("TraceEnabled() = false with a trace writer configured")
	}
}

func TestSetLogWriters_NilDisables(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()
	defer SetLogWriters(nil, nil, nil)

	var fallback []string
	SetLogger(func(format string, v ...interface{}) {
		fallback = append(fallback, format)
	})

	SetLogWriters(nil, nil, nil)
	Diagf("dropped")
	Tracef("dropped")
	if len(fallback) != 0 {
		t.Errorf("diag/trace should not fall back to Logf, got %v", fallback)
	}
	if TraceEnabled() {
		t.Error("TraceEnabled() = true with no trace writer")
	}

	// Ops falls back to Logf when unset.
	Opsf("ops message")
	if len(fallback) != 1 || fallback[0] != "ops message" {
		t.Errorf("Opsf fallback = %v", fallback)
	}
}

func TestSetLegacyLogger(t *testing.T) {
	defer SetLogWriters(nil, nil, nil)

	var buf bytes.Buffer
	SetLegacyLogger(&buf)
	Opsf("one")
	Diagf("two")
	Tracef("three")
	out := buf.String()
	for _, want := range []string{"one", "two", "three"} {
		if !strings.Contains(out, want) {
			t.Errorf("legacy logger output missing %q: %q", want, out)
		}
	}
}
