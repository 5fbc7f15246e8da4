package model

// Item is a host content item (post, page or custom content type).
type Item struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ContentType string `json:"contentType"`
	Slug        string `json:"slug"`
	Excerpt     string `json:"excerpt"`
	Content     string `json:"content"`
	Status      string `json:"status"`
}

// Term is a host taxonomy term.
type Term struct {
	TermID         int64  `json:"termId"`
	TermTaxonomyID int64  `json:"termTaxonomyId"`
	Name           string `json:"name"`
	Taxonomy       string `json:"taxonomy"`
	Description    string `json:"description"`
	Parent         int64  `json:"parent"`
}

// ItemSummary is the trimmed-down view of a referenced content item. Advanced
// holds the referenced item's own tree while the traversal depth allows it.
type ItemSummary struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ContentType string `json:"contentType"`
	Slug        string `json:"slug"`
	Excerpt     string `json:"excerpt"`
	Content     string `json:"content"`
	Status      string `json:"status"`
	Advanced    Tree   `json:"advanced,omitempty"`
}

// Item returns the summary's identity as an Item so it can be encoded.
func (s ItemSummary) Item() Item {
	return Item{
		ID:          s.ID,
		Title:       s.Title,
		ContentType: s.ContentType,
		Slug:        s.Slug,
		Excerpt:     s.Excerpt,
		Content:     s.Content,
		Status:      s.Status,
	}
}

// TermSummary is the trimmed-down view of a referenced taxonomy term.
type TermSummary struct {
	Name           string `json:"name"`
	Taxonomy       string `json:"taxonomy"`
	TermID         int64  `json:"termId"`
	TermTaxonomyID int64  `json:"termTaxonomyId"`
	Description    string `json:"description"`
	Parent         int64  `json:"parent"`
}

// Relationship describes what a reference field points at.
type Relationship struct {
	Type  string `json:"type"`
	Class string `json:"class"`
}

// RelationshipFor builds the descriptor for a reference definition: content
// references report the first target content type, taxonomy references the
// taxonomy, and generic relationships echo the host field type.
func RelationshipFor(def FieldDefinition) *Relationship {
	switch def.EffectiveKind() {
	case KindContentReference:
		class := ""
		if len(def.TargetContentTypes) > 0 {
			class = def.TargetContentTypes[0]
		}
		return &Relationship{Type: "post", Class: class}
	case KindTaxonomyReference:
		return &Relationship{Type: "taxonomy", Class: def.TargetTaxonomy}
	case KindGenericRelationship:
		return &Relationship{Type: def.Type, Class: def.Type}
	default:
		return nil
	}
}
