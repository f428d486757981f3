// Package fault models the errors raised by remote calls, the transport,
// and recovered panics as a single tagged type so that classification is
// exhaustive instead of duck-typed field probing.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"runtime"
	"runtime/debug"
)

// Kind discriminates the fault union.
type Kind int

const (
	// KindApp is an application-level fault (including recovered panics).
	KindApp Kind = iota
	// KindHTTP is a remote call that completed with a non-success status.
	KindHTTP
	// KindNetwork is a transport failure before any response arrived.
	KindNetwork
	// KindTimeout is a deadline or timeout expiry.
	KindTimeout
)

// Fault is a classified-ready error. It is constructed at the boundary
// where the raw error is first observed (API client, transport, panic
// recovery) and flows unchanged through the ledger and retry layers.
type Fault struct {
	Kind    Kind
	Status  int // HTTP status code, KindHTTP only
	Name    string
	Message string
	Stack   string
}

func (f *Fault) Error() string {
	if f.Kind == KindHTTP {
		return fmt.Sprintf("%s (%d): %s", f.Name, f.Status, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Name, f.Message)
}

// Signature identifies repeated occurrences of the same fault so the
// ledger can count retries per fault rather than per record.
func (f *Fault) Signature() string {
	return f.Name + ":" + f.Message
}

// HTTP builds a fault for a completed request with status code status.
func HTTP(status int, message string) *Fault {
	return &Fault{Kind: KindHTTP, Status: status, Name: "HTTPError", Message: message}
}

// Network builds a transport-failure fault.
func Network(message string) *Fault {
	return &Fault{Kind: KindNetwork, Name: "NetworkError", Message: message}
}

// Timeout builds a deadline-expiry fault.
func Timeout(message string) *Fault {
	return &Fault{Kind: KindTimeout, Name: "TimeoutError", Message: message}
}

// App builds an application fault with an explicit error class name.
func App(name, message string) *Fault {
	return &Fault{Kind: KindApp, Name: name, Message: message}
}

// FromPanic converts a recovered panic value into a fault, capturing the
// stack at the recovery site.
func FromPanic(v any) *Fault {
	name := "Panic"
	if _, ok := v.(runtime.Error); ok {
		name = "RuntimeError"
	}
	return &Fault{
		Kind:    KindApp,
		Name:    name,
		Message: fmt.Sprint(v),
		Stack:   string(debug.Stack()),
	}
}

// From maps an arbitrary error onto the fault union. Faults pass through
// unchanged; net and url errors become network or timeout faults; anything
// else becomes an application fault.
func From(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(err.Error())
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return Timeout(err.Error())
		}
		return Network(err.Error())
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		return Network(err.Error())
	}

	return App("Error", err.Error())
}
