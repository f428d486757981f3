package fault

import "net/http"

// Severity says how urgent a fault is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityError    Severity = "error"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Category says what broke. Severity and category are independent axes.
type Category string

const (
	CategoryNetwork Category = "network"
	CategoryClient  Category = "client"
	CategoryServer  Category = "server"
	CategoryRuntime Category = "runtime"
	CategoryUnknown Category = "unknown"
)

// ComponentCategory names the category for a fault attributed to a UI
// component rather than a transport or remote failure.
func ComponentCategory(name string) Category {
	return Category("component_" + name)
}

// Context is caller-supplied metadata attached to a fault: feature name,
// operation name, entity ids, originating component.
type Context map[string]string

// Class is the classification result.
type Class struct {
	Severity Severity
	Category Category
}

// runtimeNames are the error class names produced by the language runtime
// (recovered panics) as opposed to application errors.
var runtimeNames = map[string]bool{
	"Panic":        true,
	"RuntimeError": true,
}

// Classify maps a fault plus its context onto a severity and category.
// Pure and deterministic: network and status checks are evaluated before
// the component fallback, so an HTTP client error classifies as client
// even when a component context is present.
func Classify(f *Fault, ctx Context) Class {
	return Class{
		Severity: classifySeverity(f, ctx),
		Category: classifyCategory(f, ctx),
	}
}

func classifyCategory(f *Fault, ctx Context) Category {
	switch f.Kind {
	case KindNetwork, KindTimeout:
		return CategoryNetwork
	case KindHTTP:
		if f.Status >= 400 && f.Status < 500 {
			return CategoryClient
		}
		if f.Status >= 500 {
			return CategoryServer
		}
	}

	if component := ctx["component"]; component != "" {
		return ComponentCategory(component)
	}
	if runtimeNames[f.Name] {
		return CategoryRuntime
	}
	return CategoryUnknown
}

func classifySeverity(f *Fault, ctx Context) Severity {
	if f.Kind == KindHTTP {
		switch f.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return SeverityCritical
		}
		if f.Status >= 500 {
			return SeverityError
		}
	}

	if runtimeNames[f.Name] && ctx["component"] == "chat" {
		return SeverityError
	}

	switch f.Kind {
	case KindNetwork, KindTimeout:
		return SeverityWarning
	case KindHTTP:
		if f.Status >= 400 && f.Status < 500 {
			return SeverityWarning
		}
	}
	return SeverityInfo
}
