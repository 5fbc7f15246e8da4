package fieldtree_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	fieldtree "github.com/goliatone/go-fieldtree"
	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/testsupport"
)

func TestEncodeThenFlattenRoundTrip(t *testing.T) {
	f := testsupport.NewFixture(t)
	f.AddPosts(1)
	f.Store.Seed(1, model.StoredValues{"subtitle": "hello", "colour": "green"})

	tree, err := fieldtree.Encode(context.Background(), f.Registry, f.Store, testsupport.Post(1))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(tree) != 1 {
		t.Fatalf("expected the article group only, got %d groups", len(tree))
	}

	updates, err := fieldtree.FlattenJSON([]byte(`{"advanced":[{"fields":[
		{"key":"field_subtitle","value":"hello"},
		{"key":"field_colour","value":"green"}
	]}]}`))
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	want := []fieldtree.Update{
		{Key: testsupport.KeySubtitle, Value: "hello"},
		{Key: testsupport.KeyColour, Value: "green"},
	}
	if diff := cmp.Diff(want, updates); diff != "" {
		t.Fatalf("updates mismatch (-want +got):\n%s", diff)
	}
}

func TestShouldPersist(t *testing.T) {
	cases := []struct {
		allowed  bool
		status   string
		autosave bool
		want     bool
	}{
		{allowed: true, status: "publish", want: true},
		{allowed: false, status: "publish", want: false},
		{allowed: true, status: "publish", autosave: true, want: false},
		{allowed: true, status: "inherit", want: false},
		{allowed: true, status: "draft", want: true},
	}
	for _, tc := range cases {
		if got := fieldtree.ShouldPersist(tc.allowed, tc.status, tc.autosave); got != tc.want {
			t.Fatalf("ShouldPersist(%v, %q, %v) = %v, want %v", tc.allowed, tc.status, tc.autosave, got, tc.want)
		}
	}
}

func TestMaxDepthDefault(t *testing.T) {
	if fieldtree.MaxDepth != 3 {
		t.Fatalf("MaxDepth = %d", fieldtree.MaxDepth)
	}
}
