package openapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/schema"
)

// Extension keys attached to field property schemas.
const (
	ExtensionKey  = "x-fieldtree-key"
	ExtensionKind = "x-fieldtree-kind"
)

const componentsPrefix = "#/components/schemas/"

// Option customises the generated document.
type Option func(*builder)

// WithTitle sets info.title. Defaults to "Field Tree".
func WithTitle(title string) Option {
	return func(b *builder) {
		b.title = title
	}
}

// WithVersion sets info.version. Defaults to "1.0.0".
func WithVersion(version string) Option {
	return func(b *builder) {
		b.version = version
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(b *builder) {
		if url != "" {
			b.servers = append(b.servers, url)
		}
	}
}

type builder struct {
	title   string
	version string
	servers []string
	schemas openapi3.Schemas
}

// Build describes the registry's field groups and the item field endpoints.
// The returned document has been validated.
func Build(ctx context.Context, registry schema.Registry, options ...Option) (*openapi3.T, error) {
	if registry == nil {
		return nil, errors.New("openapi: registry is required")
	}
	b := &builder{
		title:   "Field Tree",
		version: "1.0.0",
		schemas: openapi3.Schemas{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}

	groups, err := registry.FieldGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("openapi: list field groups: %w", err)
	}

	b.addShared()
	for _, group := range groups {
		b.schemas[ComponentName(group.ID)] = openapi3.NewSchemaRef("", b.groupSchema(group))
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   b.title,
			Version: b.version,
		},
		Paths:      b.paths(),
		Components: &openapi3.Components{Schemas: b.schemas},
	}
	for _, url := range b.servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: url})
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	return doc, nil
}

// JSON builds the document and marshals it.
func JSON(ctx context.Context, registry schema.Registry, options ...Option) ([]byte, error) {
	doc, err := Build(ctx, registry, options...)
	if err != nil {
		return nil, err
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("openapi: marshal: %w", err)
	}
	return payload, nil
}

var componentUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ComponentName is the component schema name used for a field group.
func ComponentName(groupID string) string {
	return "Group_" + componentUnsafe.ReplaceAllString(groupID, "_")
}

func (b *builder) ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(componentsPrefix+name, b.schemas[name].Value)
}

func (b *builder) addShared() {
	b.schemas["Relationship"] = openapi3.NewSchemaRef("", openapi3.NewObjectSchema().
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("class", openapi3.NewStringSchema()))

	b.schemas["ItemSummary"] = openapi3.NewSchemaRef("", openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("contentType", openapi3.NewStringSchema()).
		WithProperty("slug", openapi3.NewStringSchema()).
		WithProperty("excerpt", openapi3.NewStringSchema()).
		WithProperty("content", openapi3.NewStringSchema()).
		WithProperty("status", openapi3.NewStringSchema()).
		WithProperty("advanced", openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema())))

	b.schemas["TermSummary"] = openapi3.NewSchemaRef("", openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("taxonomy", openapi3.NewStringSchema()).
		WithProperty("termId", openapi3.NewInt64Schema()).
		WithProperty("termTaxonomyId", openapi3.NewInt64Schema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("parent", openapi3.NewInt64Schema()))

	// Rows nest field nodes one level deeper; deeper levels stay untyped.
	row := openapi3.NewArraySchema().WithItems(openapi3.NewObjectSchema())
	fieldNode := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("label", openapi3.NewStringSchema()).
		WithProperty("value", openapi3.NewSchema()).
		WithProperty("choices", openapi3.NewObjectSchema()).
		WithPropertyRef("relationship", b.ref("Relationship")).
		WithProperty("fields", openapi3.NewArraySchema().WithItems(row))
	fieldNode.Required = []string{"name", "label"}
	b.schemas["FieldNode"] = openapi3.NewSchemaRef("", fieldNode)

	group := openapi3.NewObjectSchema().WithProperty("title", openapi3.NewStringSchema())
	group.Properties["fields"] = arrayOf(b.ref("FieldNode"))
	group.Required = []string{"title", "fields"}
	b.schemas["Group"] = openapi3.NewSchemaRef("", group)

	response := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("contentType", openapi3.NewStringSchema())
	response.Properties["advanced"] = arrayOf(b.ref("Group"))
	b.schemas["ItemFields"] = openapi3.NewSchemaRef("", response)

	postedField := openapi3.NewObjectSchema().
		WithProperty("key", openapi3.NewStringSchema()).
		WithProperty("value", openapi3.NewSchema()).
		WithProperty("fields", openapi3.NewSchema())
	postedField.Required = []string{"key"}
	postedField.Description = "A posted field. Repeating groups carry rows under fields instead of a value."
	b.schemas["PostedField"] = openapi3.NewSchemaRef("", postedField)

	postedGroup := openapi3.NewObjectSchema()
	postedGroup.Properties["fields"] = arrayOf(b.ref("PostedField"))
	b.schemas["PostedGroup"] = openapi3.NewSchemaRef("", postedGroup)

	write := openapi3.NewObjectSchema()
	write.Properties["advanced"] = arrayOf(b.ref("PostedGroup"))
	write.Required = []string{"advanced"}
	b.schemas["WriteRequest"] = openapi3.NewSchemaRef("", write)
}

func arrayOf(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	array := openapi3.NewArraySchema()
	array.Items = items
	return openapi3.NewSchemaRef("", array)
}

func (b *builder) groupSchema(group model.FieldGroup) *openapi3.Schema {
	out := openapi3.NewObjectSchema()
	out.Title = group.Title
	if len(group.ContentTypes) > 0 {
		out.Description = "Applies to: " + strings.Join(group.ContentTypes, ", ")
	}
	for _, def := range schema.ValueFields(group.Fields) {
		if def.Name == "" {
			continue
		}
		out.Properties[def.Name] = b.fieldSchema(def)
	}
	return out
}

func (b *builder) fieldSchema(def model.FieldDefinition) *openapi3.SchemaRef {
	kind := def.EffectiveKind()

	var s *openapi3.Schema
	switch kind {
	case model.KindChoice:
		values := make([]any, 0, len(def.Choices))
		for _, choice := range def.Choices {
			values = append(values, choice.Value)
		}
		s = openapi3.NewStringSchema()
		if len(values) > 0 {
			s = s.WithEnum(values...)
		}
		if strings.EqualFold(def.Type, "checkbox") {
			s = openapi3.NewArraySchema().WithItems(s)
		}
	case model.KindContentReference:
		s = b.referenceSchema(def, "ItemSummary")
	case model.KindTaxonomyReference:
		s = b.referenceSchema(def, "TermSummary")
	case model.KindRepeatingGroup:
		row := openapi3.NewObjectSchema()
		for _, sub := range def.SubFields {
			if sub.Name == "" {
				continue
			}
			row.Properties[sub.Name] = b.fieldSchema(sub)
		}
		s = openapi3.NewArraySchema().WithItems(row)
	default:
		s = openapi3.NewSchema()
	}

	s.Description = def.Label
	s.Extensions = map[string]any{
		ExtensionKey:  def.Key,
		ExtensionKind: string(kind),
	}
	return openapi3.NewSchemaRef("", s)
}

func (b *builder) referenceSchema(def model.FieldDefinition, component string) *openapi3.Schema {
	array := openapi3.NewArraySchema()
	if def.EffectiveReturnFormat() == model.ReturnObject {
		array.Items = b.ref(component)
		return array
	}
	array.Items = openapi3.NewSchemaRef("", openapi3.NewInt64Schema())
	return array
}

func (b *builder) paths() *openapi3.Paths {
	idParam := &openapi3.ParameterRef{
		Value: openapi3.NewPathParameter("id").
			WithDescription("Content item id").
			WithSchema(openapi3.NewInt64Schema()),
	}
	itemFields := b.ref("ItemFields")

	jsonResponse := func(description string) *openapi3.ResponseRef {
		return &openapi3.ResponseRef{Value: openapi3.NewResponse().
			WithDescription(description).
			WithJSONSchemaRef(itemFields)}
	}
	plain := func(description string) *openapi3.ResponseRef {
		return &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription(description)}
	}
	writeBody := &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchemaRef(b.ref("WriteRequest"))}

	read := &openapi3.Operation{
		OperationID: "readItemFields",
		Summary:     "Encode the field tree of a content item",
		Parameters:  openapi3.Parameters{idParam},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Encoded field tree")),
			openapi3.WithStatus(http.StatusNotFound, plain("Unknown item")),
		),
	}
	write := &openapi3.Operation{
		OperationID: "writeItemFields",
		Summary:     "Decode and persist a posted field tree",
		Parameters:  openapi3.Parameters{idParam},
		RequestBody: writeBody,
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Field tree after the write")),
			openapi3.WithStatus(http.StatusBadRequest, plain("Malformed payload")),
			openapi3.WithStatus(http.StatusRequestEntityTooLarge, plain("Payload exceeds the body limit")),
			openapi3.WithStatus(http.StatusNotFound, plain("Unknown item")),
		),
	}
	autosave := &openapi3.Operation{
		OperationID: "autosaveItemFields",
		Summary:     "Autosave endpoint; field values are never persisted",
		Parameters:  openapi3.Parameters{idParam},
		RequestBody: writeBody,
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Current field tree")),
			openapi3.WithStatus(http.StatusNotFound, plain("Unknown item")),
		),
	}

	return openapi3.NewPaths(
		openapi3.WithPath("/items/{id}/fields", &openapi3.PathItem{Get: read, Post: write}),
		openapi3.WithPath("/items/{id}/autosave", &openapi3.PathItem{Post: autosave}),
	)
}
