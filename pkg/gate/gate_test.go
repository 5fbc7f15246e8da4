package gate_test

import (
	"testing"

	"github.com/goliatone/go-fieldtree/pkg/gate"
)

func TestGateDecisions(t *testing.T) {
	g := gate.New()

	cases := []struct {
		name       string
		req        gate.Request
		wantOK     bool
		wantReason gate.Reason
	}{
		{name: "allowed", req: gate.Request{Allowed: true, Status: "publish"}, wantOK: true, wantReason: gate.ReasonAllowed},
		{name: "flag off", req: gate.Request{Allowed: false, Status: "publish"}, wantReason: gate.ReasonFlag},
		{name: "autosave", req: gate.Request{Allowed: true, Autosave: true}, wantReason: gate.ReasonAutosave},
		{name: "trash", req: gate.Request{Allowed: true, Status: "trash"}, wantReason: gate.ReasonTransient},
		{name: "auto draft mixed case", req: gate.Request{Allowed: true, Status: " Auto-Draft "}, wantReason: gate.ReasonTransient},
		{name: "revision", req: gate.Request{Allowed: true, Status: "inherit"}, wantReason: gate.ReasonTransient},
		{name: "draft", req: gate.Request{Allowed: true, Status: "draft"}, wantOK: true, wantReason: gate.ReasonAllowed},
		{name: "flag wins over autosave", req: gate.Request{Autosave: true, Status: "trash"}, wantReason: gate.ReasonFlag},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := g.Evaluate(tc.req)
			if ok != tc.wantOK || reason != tc.wantReason {
				t.Fatalf("Evaluate = (%v, %s), want (%v, %s)", ok, reason, tc.wantOK, tc.wantReason)
			}
			if got := g.ShouldPersist(tc.req); got != tc.wantOK {
				t.Fatalf("ShouldPersist = %v, want %v", got, tc.wantOK)
			}
		})
	}
}

func TestGateCustomStatuses(t *testing.T) {
	g := gate.New(gate.WithTransientStatuses("archived", ""))

	if !g.ShouldPersist(gate.Request{Allowed: true, Status: "trash"}) {
		t.Fatalf("trash should be writable once the list is replaced")
	}
	if g.ShouldPersist(gate.Request{Allowed: true, Status: "archived"}) {
		t.Fatalf("archived should be blocked")
	}
	if !g.ShouldPersist(gate.Request{Allowed: true, Status: ""}) {
		t.Fatalf("empty status should not match the blank entry")
	}
}
