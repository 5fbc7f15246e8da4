package decoder_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-fieldtree/pkg/decoder"
	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/posted"
)

func mustParse(t *testing.T, raw string) posted.Node {
	t.Helper()
	node, err := posted.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return node
}

func TestFlattenScalarField(t *testing.T) {
	groups := mustParse(t, `[{"fields":{"1508952972":{"key":"field_1","value":"hello"}}}]`)

	got := decoder.Flatten(groups)
	want := []model.Update{{Key: "field_1", Value: "hello"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenKeepsPostedOrderAcrossGroups(t *testing.T) {
	groups := mustParse(t, `{
		"0": {"fields": {"9": {"key": "field_b", "value": "b"}, "1": {"key": "field_a", "value": "a"}}},
		"1": {"fields": [{"key": "field_c", "value": true}]}
	}`)

	got := decoder.Flatten(groups)
	want := []model.Update{
		{Key: "field_b", Value: "b"},
		{Key: "field_a", Value: "a"},
		{Key: "field_c", Value: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenMissingValueYieldsNil(t *testing.T) {
	groups := mustParse(t, `[{"fields":[{"key":"field_1"}]}]`)

	got := decoder.Flatten(groups)
	want := []model.Update{{Key: "field_1", Value: nil}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenRepeaterWithValues(t *testing.T) {
	groups := mustParse(t, `[{"fields":{"7":{"key":"field_rows","fields":[
		[{"key":"field_line","value":"first"}],
		[{"key":"field_line","value":"second"}]
	]}}}]`)

	got := decoder.Flatten(groups)
	want := []model.Update{{
		Key: "field_rows",
		Value: model.Rows{
			{Index: "0", Fields: map[string]any{"field_line": "first"}},
			{Index: "1", Fields: map[string]any{"field_line": "second"}},
		},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenNestedRepeater(t *testing.T) {
	groups := mustParse(t, `[{"fields":[{"key":"field_sections","fields":{
		"a": {"0": {"key":"field_heading","value":"Intro"},
		      "1": {"key":"field_items","fields":[[{"key":"field_item","value":"x"}],[{"key":"field_item","value":""}]]}}
	}}]}]`)

	got := decoder.Flatten(groups)
	want := []model.Update{{
		Key: "field_sections",
		Value: model.Rows{{
			Index: "a",
			Fields: map[string]any{
				"field_heading": "Intro",
				"field_items": model.Rows{
					{Index: "0", Fields: map[string]any{"field_item": "x"}},
					{Index: "1", Fields: map[string]any{"field_item": ""}},
				},
			},
		}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenRepeaterWithEmptyValueFallsBackToPlainField(t *testing.T) {
	groups := mustParse(t, `[{"fields":[{"key":"field_rows","fields":[
		[{"key":"field_line","value":"first"}],
		[{"key":"field_line","value":""}]
	]}]}]`)

	got := decoder.Flatten(groups)
	want := []model.Update{{Key: "field_rows", Value: nil}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenScalarRowsAreNotRepeaters(t *testing.T) {
	groups := mustParse(t, `[{"fields":[{"key":"field_tags","value":["a","b"],"fields":["a","b"]}]}]`)

	got := decoder.Flatten(groups)
	want := []model.Update{{Key: "field_tags", Value: []any{"a", "b"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenKeepsNumbersVerbatim(t *testing.T) {
	groups := mustParse(t, `[{"fields":[{"key":"field_count","value":12}]}]`)

	got := decoder.Flatten(groups)
	if len(got) != 1 {
		t.Fatalf("expected one update, got %d", len(got))
	}
	if got[0].Value != json.Number("12") {
		t.Fatalf("expected json.Number 12, got %#v", got[0].Value)
	}
}

func TestFlattenJSON(t *testing.T) {
	got, err := decoder.FlattenJSON([]byte(`{"advanced":[{"fields":{"1":{"key":"field_1","value":"v"}}}]}`))
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if diff := cmp.Diff([]model.Update{{Key: "field_1", Value: "v"}}, got); diff != "" {
		t.Fatalf("updates mismatch (-want +got):\n%s", diff)
	}

	got, err = decoder.FlattenJSON([]byte(`[{"fields":[{"key":"field_2","value":"w"}]}]`))
	if err != nil {
		t.Fatalf("flatten bare list: %v", err)
	}
	if diff := cmp.Diff([]model.Update{{Key: "field_2", Value: "w"}}, got); diff != "" {
		t.Fatalf("updates mismatch (-want +got):\n%s", diff)
	}

	if _, err := decoder.FlattenJSON([]byte(`{"other":[]}`)); err == nil {
		t.Fatalf("expected error for payload without advanced member")
	}
	if _, err := decoder.FlattenJSON([]byte(`"text"`)); err == nil {
		t.Fatalf("expected error for scalar payload")
	}
}
