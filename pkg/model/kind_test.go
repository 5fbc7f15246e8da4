package model_test

import (
	"testing"

	"github.com/goliatone/go-fieldtree/pkg/model"
)

func TestResolveKind(t *testing.T) {
	cases := []struct {
		name string
		def  model.FieldDefinition
		want model.FieldKind
	}{
		{name: "explicit kind wins", def: model.FieldDefinition{Type: "text", Kind: model.KindChoice}, want: model.KindChoice},
		{name: "text", def: model.FieldDefinition{Type: "text"}, want: model.KindScalar},
		{name: "unknown type", def: model.FieldDefinition{Type: "oembed"}, want: model.KindScalar},
		{name: "select", def: model.FieldDefinition{Type: "select"}, want: model.KindChoice},
		{name: "choices on scalar type", def: model.FieldDefinition{Type: "text", Choices: model.Choices{{Value: "a", Label: "A"}}}, want: model.KindChoice},
		{name: "repeater", def: model.FieldDefinition{Type: "repeater"}, want: model.KindRepeatingGroup},
		{name: "tab", def: model.FieldDefinition{Type: "tab"}, want: model.KindTab},
		{name: "message", def: model.FieldDefinition{Type: "Message"}, want: model.KindMessage},
		{
			name: "relationship with post types and taxonomy",
			def:  model.FieldDefinition{Type: "relationship", TargetContentTypes: []string{"all"}, TargetTaxonomy: "all"},
			want: model.KindContentReference,
		},
		{name: "taxonomy", def: model.FieldDefinition{Type: "taxonomy", TargetTaxonomy: "category"}, want: model.KindTaxonomyReference},
		{name: "user", def: model.FieldDefinition{Type: "user"}, want: model.KindGenericRelationship},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := model.ResolveKind(tc.def); got != tc.want {
				t.Fatalf("kind mismatch: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	kind, ok := model.ParseKind(" Content-Reference ")
	if !ok || kind != model.KindContentReference {
		t.Fatalf("expected content_reference, got %q (ok=%v)", kind, ok)
	}
	if _, ok := model.ParseKind("flexible"); ok {
		t.Fatalf("expected unknown kind to be rejected")
	}
	if !model.KindTab.Presentational() || model.KindScalar.Presentational() {
		t.Fatalf("presentational classification mismatch")
	}
}

func TestEffectiveReturnFormat(t *testing.T) {
	content := model.FieldDefinition{Type: "post_object", TargetContentTypes: []string{"page"}}
	if got := content.EffectiveReturnFormat(); got != model.ReturnObject {
		t.Fatalf("content reference default: got %q", got)
	}
	term := model.FieldDefinition{Type: "taxonomy", TargetTaxonomy: "category"}
	if got := term.EffectiveReturnFormat(); got != model.ReturnID {
		t.Fatalf("taxonomy default: got %q", got)
	}
	term.ReturnFormat = "OBJECT"
	if got := term.EffectiveReturnFormat(); got != model.ReturnObject {
		t.Fatalf("explicit format: got %q", got)
	}
}

func TestRelationshipFor(t *testing.T) {
	rel := model.RelationshipFor(model.FieldDefinition{Type: "relationship", TargetContentTypes: []string{"page", "post"}})
	if rel == nil || rel.Type != "post" || rel.Class != "page" {
		t.Fatalf("content relationship mismatch: %#v", rel)
	}
	rel = model.RelationshipFor(model.FieldDefinition{Type: "taxonomy", TargetTaxonomy: "genre"})
	if rel == nil || rel.Type != "taxonomy" || rel.Class != "genre" {
		t.Fatalf("taxonomy relationship mismatch: %#v", rel)
	}
	rel = model.RelationshipFor(model.FieldDefinition{Type: "user"})
	if rel == nil || rel.Type != "user" || rel.Class != "user" {
		t.Fatalf("generic relationship mismatch: %#v", rel)
	}
	if rel := model.RelationshipFor(model.FieldDefinition{Type: "text"}); rel != nil {
		t.Fatalf("expected no relationship for scalar, got %#v", rel)
	}
}
