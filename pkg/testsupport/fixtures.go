// Package testsupport holds shared fixtures and golden-file helpers for the
// module's tests.
package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/registry"
	"github.com/goliatone/go-fieldtree/pkg/schema"
	"github.com/goliatone/go-fieldtree/pkg/store/memory"
)

// Fixture group ids and field keys.
const (
	GroupArticle = "group_article"
	GroupLinks   = "group_links"
	GroupEvent   = "group_event"

	KeySubtitle = "field_subtitle"
	KeyBody     = "field_body"
	KeyColour   = "field_colour"
	KeyTags     = "field_tags"
	KeyAuthor   = "field_author"
	KeySessions = "field_sessions"
	KeyTitle    = "field_session_title"
	KeyTrack    = "field_session_track"
	KeyNext     = "field_next"
	KeyRelated  = "field_related_ids"
	KeyVenue    = "field_venue"
)

// ArticleGroup applies to posts and covers every value-carrying kind except
// content references, plus a tab separator.
func ArticleGroup() model.FieldGroup {
	return model.FieldGroup{
		ID:           GroupArticle,
		Title:        "Article",
		ContentTypes: []string{"post"},
		Fields: []model.FieldDefinition{
			{Key: KeySubtitle, Name: "subtitle", Label: "Subtitle", Type: "text"},
			{Key: "field_layout_tab", Type: "tab", Label: "Layout"},
			{Key: KeyBody, Name: "body", Label: "Body", Type: "wysiwyg"},
			{Key: KeyColour, Name: "colour", Label: "Colour", Type: "select", Choices: model.Choices{
				{Value: "red", Label: "Red"},
				{Value: "green", Label: "Green"},
				{Value: "blue", Label: "Blue"},
			}},
			{Key: KeyTags, Name: "tags", Label: "Tags", Type: "taxonomy", TargetTaxonomy: "category", ReturnFormat: model.ReturnObject},
			{Key: KeyAuthor, Name: "author", Label: "Author", Type: "user"},
			{Key: KeySessions, Name: "sessions", Label: "Sessions", Type: "repeater", SubFields: []model.FieldDefinition{
				{Key: KeyTitle, Name: "title", Label: "Title", Type: "text"},
				{Key: KeyTrack, Name: "track", Label: "Track", Type: "radio", Choices: model.Choices{
					{Value: "main", Label: "Main stage"},
					{Value: "side", Label: "Side stage"},
				}},
			}},
		},
	}
}

// LinksGroup applies to posts and holds content references in both return
// formats.
func LinksGroup() model.FieldGroup {
	return model.FieldGroup{
		ID:           GroupLinks,
		Title:        "Links",
		ContentTypes: []string{"post"},
		Fields: []model.FieldDefinition{
			{Key: KeyNext, Name: "next", Label: "Next", Type: "relationship", TargetContentTypes: []string{"post"}},
			{Key: KeyRelated, Name: "related_ids", Label: "Related", Type: "post_object", TargetContentTypes: []string{"post"}, ReturnFormat: model.ReturnID},
		},
	}
}

// EventGroup only applies to events.
func EventGroup() model.FieldGroup {
	return model.FieldGroup{
		ID:           GroupEvent,
		Title:        "Event",
		ContentTypes: []string{"event"},
		Fields: []model.FieldDefinition{
			{Key: KeyVenue, Name: "venue", Label: "Venue", Type: "text"},
		},
	}
}

// Post returns a published post with predictable content.
func Post(id int64) model.Item {
	return model.Item{
		ID:          id,
		Title:       fmt.Sprintf("Post %d", id),
		ContentType: "post",
		Slug:        fmt.Sprintf("post-%d", id),
		Excerpt:     fmt.Sprintf("Excerpt %d", id),
		Content:     fmt.Sprintf("<p>Body %d</p>", id),
		Status:      "publish",
	}
}

// Fixture wires the fixture groups into an in-memory registry, content
// source and value store.
type Fixture struct {
	Registry *registry.Memory
	Content  *memory.Content
	Store    *memory.Store
}

// NewFixture registers the article, links and event groups.
func NewFixture(t testing.TB) *Fixture {
	t.Helper()

	reg, err := registry.NewMemory(ArticleGroup(), LinksGroup(), EventGroup())
	if err != nil {
		t.Fatalf("fixture registry: %v", err)
	}
	content := memory.NewContent()
	content.PutTerm(model.Term{TermID: 10, TermTaxonomyID: 110, Name: "News", Taxonomy: "category"})
	content.PutTerm(model.Term{TermID: 11, TermTaxonomyID: 111, Name: "Sport", Taxonomy: "category", Parent: 10})

	return &Fixture{
		Registry: reg,
		Content:  content,
		Store:    memory.New(schema.NewIndex(reg), memory.WithContent(content)),
	}
}

// AddPosts registers posts with the content source.
func (f *Fixture) AddPosts(ids ...int64) {
	for _, id := range ids {
		f.Content.PutItem(Post(id))
	}
}

// Cycle links the posts into a reference ring: each post's "next" field
// points at the following id and the last points back at the first.
func (f *Fixture) Cycle(ids ...int64) {
	f.AddPosts(ids...)
	for i, id := range ids {
		next := ids[(i+1)%len(ids)]
		f.Store.Seed(id, model.StoredValues{"next": []any{next}})
	}
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// MustJSON encodes value as indented JSON followed by a newline.
func MustJSON(t testing.TB, value any) []byte {
	t.Helper()

	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	return append(payload, '\n')
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t testing.TB, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// AssertGoldenJSON compares value's indented JSON form with the golden file
// at path, rewriting the file instead when UPDATE_GOLDENS is set.
func AssertGoldenJSON(t testing.TB, path string, value any) {
	t.Helper()

	got := MustJSON(t, value)
	if WriteMaybeGolden(t, path, got) {
		return
	}
	want := MustReadGolden(t, path)
	if !bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(got)) {
		t.Fatalf("golden mismatch %s (-want +got):\n%s", path, cmp.Diff(string(want), string(got)))
	}
}
