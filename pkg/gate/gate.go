// Package gate decides whether a write request may persist decoded values.
package gate

import "strings"

// DefaultTransientStatuses are the item lifecycle states that never accept
// field writes.
var DefaultTransientStatuses = []string{"auto-draft", "trash", "inherit"}

// Reason explains a gate decision.
type Reason string

const (
	ReasonAllowed   Reason = "allowed"
	ReasonFlag      Reason = "flag"
	ReasonAutosave  Reason = "autosave"
	ReasonTransient Reason = "transient_status"
)

// Request carries the signals the gate consults.
type Request struct {
	// Allowed is the externally supplied write flag (header, config default
	// or guard callback).
	Allowed bool
	// Status is the target item's lifecycle status.
	Status string
	// Autosave marks background autosave requests.
	Autosave bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithTransientStatuses replaces the transient status list.
func WithTransientStatuses(statuses ...string) Option {
	return func(g *Gate) {
		g.transient = statusSet(statuses)
	}
}

// Gate is a stateless write predicate.
type Gate struct {
	transient map[string]struct{}
}

// New returns a gate using DefaultTransientStatuses unless overridden.
func New(options ...Option) *Gate {
	g := &Gate{transient: statusSet(DefaultTransientStatuses)}
	for _, opt := range options {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Evaluate returns the decision and the first rule that produced it.
func (g *Gate) Evaluate(req Request) (bool, Reason) {
	switch {
	case !req.Allowed:
		return false, ReasonFlag
	case req.Autosave:
		return false, ReasonAutosave
	case g.isTransient(req.Status):
		return false, ReasonTransient
	default:
		return true, ReasonAllowed
	}
}

// ShouldPersist reports whether decoding and persistence may run.
func (g *Gate) ShouldPersist(req Request) bool {
	ok, _ := g.Evaluate(req)
	return ok
}

func (g *Gate) isTransient(status string) bool {
	_, ok := g.transient[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

func statusSet(statuses []string) map[string]struct{} {
	out := make(map[string]struct{}, len(statuses))
	for _, status := range statuses {
		if trimmed := strings.ToLower(strings.TrimSpace(status)); trimmed != "" {
			out[trimmed] = struct{}{}
		}
	}
	return out
}
