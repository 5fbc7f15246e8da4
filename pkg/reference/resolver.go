// Package reference normalises stored reference values into summaries.
//
// A stored reference value is either a resolved object (or list of objects)
// when the field's return format asks for objects, or bare identifiers when
// it asks for ids. Objects are summarised; identifiers pass through
// unchanged so callers can tell the two modes apart by type.
package reference

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/sanitize"
)

// Resolver summarises reference values.
type Resolver struct {
	sanitizer sanitize.Sanitizer
}

// New returns a Resolver that cleans summary excerpts and bodies with
// sanitizer. A nil sanitizer leaves them untouched.
func New(sanitizer sanitize.Sanitizer) *Resolver {
	if sanitizer == nil {
		sanitizer = sanitize.Passthrough
	}
	return &Resolver{sanitizer: sanitizer}
}

// Resolve normalises raw for a reference kind:
//
//   - a list whose first element is an object becomes a list of summaries
//     ([]model.ItemSummary or []model.TermSummary);
//   - a single object becomes one summary;
//   - anything else (ids, id lists, scalars) is returned unchanged.
//
// Generic relationships are never summarised.
func (r *Resolver) Resolve(kind model.FieldKind, raw any) any {
	if kind != model.KindContentReference && kind != model.KindTaxonomyReference {
		return raw
	}

	if list, ok := asList(raw); ok {
		if len(list) == 0 || !isObject(list[0]) {
			return raw
		}
		if kind == model.KindContentReference {
			out := make([]model.ItemSummary, 0, len(list))
			for _, element := range list {
				if summary, ok := r.summarizeItem(element); ok {
					out = append(out, summary)
				}
			}
			return out
		}
		out := make([]model.TermSummary, 0, len(list))
		for _, element := range list {
			if summary, ok := summarizeTerm(element); ok {
				out = append(out, summary)
			}
		}
		return out
	}

	if !isObject(raw) {
		return raw
	}
	if kind == model.KindContentReference {
		if summary, ok := r.summarizeItem(raw); ok {
			return summary
		}
		return raw
	}
	if summary, ok := summarizeTerm(raw); ok {
		return summary
	}
	return raw
}

// SummarizeItem builds the summary for one item, sanitising its excerpt and
// content.
func (r *Resolver) SummarizeItem(item model.Item) model.ItemSummary {
	return model.ItemSummary{
		ID:          item.ID,
		Title:       item.Title,
		ContentType: item.ContentType,
		Slug:        item.Slug,
		Excerpt:     r.sanitizer.SanitizeRichText(item.Excerpt),
		Content:     r.sanitizer.SanitizeRichText(item.Content),
		Status:      item.Status,
	}
}

func (r *Resolver) summarizeItem(value any) (model.ItemSummary, bool) {
	switch v := value.(type) {
	case model.Item:
		return r.SummarizeItem(v), true
	case *model.Item:
		if v == nil {
			return model.ItemSummary{}, false
		}
		return r.SummarizeItem(*v), true
	case model.ItemSummary:
		return r.SummarizeItem(v.Item()), true
	case map[string]any:
		item, err := ItemFromMap(v)
		if err != nil {
			return model.ItemSummary{}, false
		}
		return r.SummarizeItem(item), true
	default:
		return model.ItemSummary{}, false
	}
}

func summarizeTerm(value any) (model.TermSummary, bool) {
	var term model.Term
	switch v := value.(type) {
	case model.Term:
		term = v
	case *model.Term:
		if v == nil {
			return model.TermSummary{}, false
		}
		term = *v
	case map[string]any:
		decoded, err := TermFromMap(v)
		if err != nil {
			return model.TermSummary{}, false
		}
		term = decoded
	default:
		return model.TermSummary{}, false
	}
	return model.TermSummary{
		Name:           term.Name,
		Taxonomy:       term.Taxonomy,
		TermID:         term.TermID,
		TermTaxonomyID: term.TermTaxonomyID,
		Description:    term.Description,
		Parent:         term.Parent,
	}, true
}

func isObject(value any) bool {
	switch value.(type) {
	case model.Item, *model.Item, model.ItemSummary, model.Term, *model.Term, map[string]any:
		return true
	default:
		return false
	}
}

// asList returns the elements of any slice value.
func asList(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	if list, ok := value.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Host object keys mapped onto the canonical names used by the decoders
// below. Lookups are case-insensitive.
var itemAliases = map[string]string{
	"id":           "id",
	"post_title":   "title",
	"title":        "title",
	"post_type":    "contentType",
	"contenttype":  "contentType",
	"content_type": "contentType",
	"type":         "contentType",
	"post_name":    "slug",
	"slug":         "slug",
	"post_excerpt": "excerpt",
	"excerpt":      "excerpt",
	"post_content": "content",
	"content":      "content",
	"post_status":  "status",
	"status":       "status",
}

var termAliases = map[string]string{
	"term_id":          "termId",
	"termid":           "termId",
	"term_taxonomy_id": "termTaxonomyId",
	"termtaxonomyid":   "termTaxonomyId",
	"name":             "name",
	"taxonomy":         "taxonomy",
	"description":      "description",
	"parent":           "parent",
}

type itemShape struct {
	ID          int64  `mapstructure:"id"`
	Title       string `mapstructure:"title"`
	ContentType string `mapstructure:"contentType"`
	Slug        string `mapstructure:"slug"`
	Excerpt     string `mapstructure:"excerpt"`
	Content     string `mapstructure:"content"`
	Status      string `mapstructure:"status"`
}

type termShape struct {
	TermID         int64  `mapstructure:"termId"`
	TermTaxonomyID int64  `mapstructure:"termTaxonomyId"`
	Name           string `mapstructure:"name"`
	Taxonomy       string `mapstructure:"taxonomy"`
	Description    string `mapstructure:"description"`
	Parent         int64  `mapstructure:"parent"`
}

// ItemFromMap decodes a host post object (WordPress-style keys such as
// "ID" and "post_title", or the camelCase keys of model.Item).
func ItemFromMap(raw map[string]any) (model.Item, error) {
	var shape itemShape
	if err := mapstructure.WeakDecode(canonical(raw, itemAliases), &shape); err != nil {
		return model.Item{}, err
	}
	return model.Item(shape), nil
}

// TermFromMap decodes a host term object.
func TermFromMap(raw map[string]any) (model.Term, error) {
	var shape termShape
	if err := mapstructure.WeakDecode(canonical(raw, termAliases), &shape); err != nil {
		return model.Term{}, err
	}
	return model.Term(shape), nil
}

func canonical(raw map[string]any, aliases map[string]string) map[string]any {
	out := make(map[string]any, len(raw))
	hostKey := map[string]bool{}
	for key, value := range raw {
		name, ok := aliases[strings.ToLower(key)]
		if !ok {
			continue
		}
		// Host keys ("ID", "post_title", ...) win over camelCase duplicates.
		host := key == "ID" || strings.Contains(key, "_")
		if hostKey[name] && !host {
			continue
		}
		out[name] = value
		hostKey[name] = host
	}
	return out
}
