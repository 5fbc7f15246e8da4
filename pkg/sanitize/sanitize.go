// Package sanitize cleans rich text before it leaves the API.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer cleans user-authored HTML.
type Sanitizer interface {
	SanitizeRichText(html string) string
}

// Func adapts a function to Sanitizer.
type Func func(string) string

// SanitizeRichText calls fn.
func (fn Func) SanitizeRichText(html string) string {
	if fn == nil {
		return html
	}
	return fn(html)
}

// Passthrough returns input unchanged.
var Passthrough Sanitizer = Func(func(html string) string { return html })

var (
	richTextOnce   sync.Once
	richTextPolicy *bluemonday.Policy
)

// RichText is the default sanitizer: bluemonday's UGC policy, which keeps
// formatting markup, links and images while stripping scripts, styles and
// event handlers.
type RichText struct{}

// NewRichText returns the default sanitizer.
func NewRichText() RichText { return RichText{} }

// SanitizeRichText implements Sanitizer.
func (RichText) SanitizeRichText(html string) string {
	if strings.TrimSpace(html) == "" {
		return html
	}
	return richTextSanitizer().Sanitize(html)
}

func richTextSanitizer() *bluemonday.Policy {
	richTextOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class").OnElements("p", "span", "div", "figure", "figcaption")
		policy.AllowElements("figure", "figcaption")
		policy.RequireNoFollowOnLinks(false)
		richTextPolicy = policy
	})
	return richTextPolicy
}

// Policy wraps a caller supplied bluemonday policy.
type Policy struct {
	policy *bluemonday.Policy
}

// NewPolicy returns a Sanitizer backed by policy. A nil policy falls back to
// the strict policy, which removes all markup.
func NewPolicy(policy *bluemonday.Policy) Policy {
	if policy == nil {
		policy = bluemonday.StrictPolicy()
	}
	return Policy{policy: policy}
}

// SanitizeRichText implements Sanitizer.
func (p Policy) SanitizeRichText(html string) string {
	return p.policy.Sanitize(html)
}
