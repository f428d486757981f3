package fault

import (
	"context"
	"errors"
	"net"
	"testing"
)

func TestClassifyCategory(t *testing.T) {
	tests := []struct {
		name   string
		f      *Fault
		ctx    Context
		expect Category
	}{
		{"network fault", Network("connection refused"), nil, CategoryNetwork},
		{"timeout fault", Timeout("deadline exceeded"), nil, CategoryNetwork},
		{"http 400", HTTP(400, "bad request"), nil, CategoryClient},
		{"http 404", HTTP(404, "not found"), nil, CategoryClient},
		{"http 500", HTTP(500, "internal"), nil, CategoryServer},
		{"http 503", HTTP(503, "unavailable"), nil, CategoryServer},
		{"component fallback", App("Error", "boom"), Context{"component": "chat"}, Category("component_chat")},
		{"client beats component", HTTP(422, "invalid"), Context{"component": "chat"}, CategoryClient},
		{"runtime", App("RuntimeError", "nil deref"), nil, CategoryRuntime},
		{"panic", FromPanic("index out of range"), nil, CategoryRuntime},
		{"unknown", App("Error", "boom"), nil, CategoryUnknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.f, tt.ctx).Category; got != tt.expect {
			t.Errorf("%s: Classify category = %q, want %q", tt.name, got, tt.expect)
		}
	}
}

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		name   string
		f      *Fault
		ctx    Context
		expect Severity
	}{
		{"401 critical", HTTP(401, "unauthorized"), nil, SeverityCritical},
		{"403 critical", HTTP(403, "forbidden"), nil, SeverityCritical},
		{"403 critical with component", HTTP(403, "forbidden"), Context{"component": "chat"}, SeverityCritical},
		{"5xx error", HTTP(500, "internal"), nil, SeverityError},
		{"runtime in chat", App("RuntimeError", "nil deref"), Context{"component": "chat"}, SeverityError},
		{"runtime elsewhere", App("RuntimeError", "nil deref"), Context{"component": "settings"}, SeverityInfo},
		{"network warning", Network("reset"), nil, SeverityWarning},
		{"4xx warning", HTTP(400, "bad request"), nil, SeverityWarning},
		{"app info", App("Error", "boom"), nil, SeverityInfo},
	}

	for _, tt := range tests {
		if got := Classify(tt.f, tt.ctx).Severity; got != tt.expect {
			t.Errorf("%s: Classify severity = %q, want %q", tt.name, got, tt.expect)
		}
	}
}

// Every 5xx status classifies as a server fault.
func TestServerRange(t *testing.T) {
	for status := 500; status < 600; status++ {
		c := Classify(HTTP(status, "x"), nil)
		if c.Category != CategoryServer {
			t.Fatalf("status %d: category = %q, want server", status, c.Category)
		}
	}
}

func TestFrom(t *testing.T) {
	f := HTTP(500, "internal")
	if got := From(f); got != f {
		t.Errorf("From should pass faults through unchanged")
	}

	if got := From(context.DeadlineExceeded); got.Kind != KindTimeout {
		t.Errorf("From(DeadlineExceeded) kind = %v, want timeout", got.Kind)
	}

	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	if got := From(opErr); got.Kind != KindNetwork {
		t.Errorf("From(net.OpError) kind = %v, want network", got.Kind)
	}
	if got := From(opErr); got.Name != "NetworkError" {
		t.Errorf("From(net.OpError) name = %q, want NetworkError", got.Name)
	}

	if got := From(errors.New("boom")); got.Kind != KindApp || got.Name != "Error" {
		t.Errorf("From(plain error) = %+v, want app fault named Error", got)
	}
}

func TestSignature(t *testing.T) {
	a := Network("x")
	b := Network("x")
	if a.Signature() != b.Signature() {
		t.Errorf("identical faults should share a signature")
	}
	if a.Signature() == Network("y").Signature() {
		t.Errorf("different messages should not share a signature")
	}
}
