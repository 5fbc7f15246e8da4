package registry_test

import (
	"context"
	"os"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/registry"
)

func TestLoadFSFixtures(t *testing.T) {
	reg, err := registry.LoadFS(os.DirFS("testdata/groups"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ctx := context.Background()

	groups, err := reg.FieldGroups(ctx)
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	var ids []string
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	if diff := cmp.Diff([]string{"group_article", "group_event"}, ids); diff != "" {
		t.Fatalf("group order mismatch (-want +got):\n%s", diff)
	}

	article, err := reg.FieldsInGroup(ctx, "group_article")
	if err != nil {
		t.Fatalf("article fields: %v", err)
	}
	if len(article) != 4 {
		t.Fatalf("expected 4 article fields (tab included), got %d", len(article))
	}
	wantChoices := model.Choices{{Value: "red", Label: "Red"}, {Value: "green", Label: "Green"}, {Value: "blue", Label: "Blue"}}
	if diff := cmp.Diff(wantChoices, article[2].Choices); diff != "" {
		t.Fatalf("choices mismatch (-want +got):\n%s", diff)
	}
	if article[3].EffectiveKind() != model.KindContentReference || article[3].ReturnFormat != model.ReturnObject {
		t.Fatalf("relationship field decoded incorrectly: %#v", article[3])
	}

	event, err := reg.FieldsInGroup(ctx, "group_event")
	if err != nil {
		t.Fatalf("event fields: %v", err)
	}
	if len(event) != 1 || len(event[0].SubFields) != 2 {
		t.Fatalf("expected repeater with two sub-fields, got %#v", event)
	}
	wantTrack := model.Choices{{Value: "main", Label: "Main stage"}, {Value: "side", Label: "Side room"}}
	if diff := cmp.Diff(wantTrack, event[0].SubFields[1].Choices); diff != "" {
		t.Fatalf("sub-field choices mismatch (-want +got):\n%s", diff)
	}

	ok, err := reg.IsGroupApplicable(ctx, "group_article", "page")
	if err != nil || !ok {
		t.Fatalf("expected article group to apply to pages (ok=%v err=%v)", ok, err)
	}
}

func TestLoadFSPattern(t *testing.T) {
	fsys := fstest.MapFS{
		"a/keep.yaml": {Data: []byte("groups:\n  - id: keep\n")},
		"b/skip.yaml": {Data: []byte("groups:\n  - id: skip\n")},
	}
	reg, err := registry.LoadFS(fsys, registry.WithPattern("a/**/*.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	groups, _ := reg.FieldGroups(context.Background())
	if len(groups) != 1 || groups[0].ID != "keep" {
		t.Fatalf("expected only the keep group, got %#v", groups)
	}
}

func TestLoadFSErrors(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"empty file":      {"g.yaml": {Data: []byte("  \n")}},
		"invalid json":    {"g.json": {Data: []byte("{")}},
		"duplicate group": {"a.yaml": {Data: []byte("groups:\n  - id: g\n")}, "b.yaml": {Data: []byte("groups:\n  - id: g\n")}},
	}
	for name, fsys := range cases {
		if _, err := registry.LoadFS(fsys); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, err := registry.LoadFS(fstest.MapFS{}, registry.WithPattern("[")); err == nil {
		t.Fatalf("expected invalid pattern error")
	}

	reg, err := registry.LoadFS(nil)
	if err != nil {
		t.Fatalf("nil fs: %v", err)
	}
	if groups, _ := reg.FieldGroups(context.Background()); len(groups) != 0 {
		t.Fatalf("expected empty registry")
	}
}
