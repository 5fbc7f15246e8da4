package encoder

import (
	"strings"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/reference"
	"github.com/goliatone/go-fieldtree/pkg/sanitize"
)

// ValueSanitizer rewrites a scalar value before it is placed on a node.
type ValueSanitizer func(def model.FieldDefinition, value any) any

// KindTransform adjusts an encoded node of one kind after the built-in
// handler ran. Placeholders for absent values are never transformed.
type KindTransform func(def model.FieldDefinition, node *model.FieldNode)

// Option customises an Encoder.
type Option func(*Encoder)

// WithMaxDepth overrides the reference expansion bound. Negative values
// disable expansion entirely.
func WithMaxDepth(maxDepth int) Option {
	return func(e *Encoder) {
		e.policy = TraversalPolicy{MaxDepth: maxDepth}
	}
}

// WithPolicy replaces the traversal policy.
func WithPolicy(policy TraversalPolicy) Option {
	return func(e *Encoder) {
		e.policy = policy
	}
}

// WithSanitizer sets the rich-text sanitizer used by the default value
// sanitizer and the default reference resolver.
func WithSanitizer(s sanitize.Sanitizer) Option {
	return func(e *Encoder) {
		if s != nil {
			e.sanitizer = s
		}
	}
}

// WithResolver injects a reference resolver.
func WithResolver(r *reference.Resolver) Option {
	return func(e *Encoder) {
		e.resolver = r
	}
}

// WithValueSanitizer replaces the scalar value hook. Passing nil restores
// the default, which cleans wysiwyg strings.
func WithValueSanitizer(fn ValueSanitizer) Option {
	return func(e *Encoder) {
		e.valueSanitizer = fn
	}
}

// WithKindTransform registers fn for nodes of kind. Transforms for the same
// kind run in registration order.
func WithKindTransform(kind model.FieldKind, fn KindTransform) Option {
	return func(e *Encoder) {
		if fn == nil {
			return
		}
		if e.transforms == nil {
			e.transforms = make(map[model.FieldKind][]KindTransform)
		}
		e.transforms[kind] = append(e.transforms[kind], fn)
	}
}

// RichTextValues returns the default value hook: strings of wysiwyg fields
// are cleaned with s, everything else passes through.
func RichTextValues(s sanitize.Sanitizer) ValueSanitizer {
	return func(def model.FieldDefinition, value any) any {
		text, ok := value.(string)
		if !ok || !strings.EqualFold(def.Type, "wysiwyg") {
			return value
		}
		return s.SanitizeRichText(text)
	}
}
