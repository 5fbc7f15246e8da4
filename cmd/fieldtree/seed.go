package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/store"
	"github.com/goliatone/go-fieldtree/pkg/store/memory"
)

// seedFile is the --seed document:
//
//	items:
//	  - id: 1
//	    title: Hello
//	    contentType: post
//	    status: publish
//	    values:
//	      field_subtitle: Intro
//	      field_sessions:
//	        - field_session_title: Opening
//	terms:
//	  - termId: 10
//	    name: News
//	    taxonomy: category
//
// Values are keyed by field key; lists of maps become repeater rows.
type seedFile struct {
	Items []seedItem `yaml:"items"`
	Terms []seedTerm `yaml:"terms"`
}

type seedItem struct {
	ID          int64          `yaml:"id"`
	Title       string         `yaml:"title"`
	ContentType string         `yaml:"contentType"`
	Slug        string         `yaml:"slug"`
	Excerpt     string         `yaml:"excerpt"`
	Content     string         `yaml:"content"`
	Status      string         `yaml:"status"`
	Values      map[string]any `yaml:"values"`
}

type seedTerm struct {
	TermID         int64  `yaml:"termId"`
	TermTaxonomyID int64  `yaml:"termTaxonomyId"`
	Name           string `yaml:"name"`
	Taxonomy       string `yaml:"taxonomy"`
	Description    string `yaml:"description"`
	Parent         int64  `yaml:"parent"`
}

type contentSeeder interface {
	SaveItem(ctx context.Context, item model.Item) error
	SaveTerm(ctx context.Context, term model.Term) error
}

type memoryContentSeeder struct {
	content *memory.Content
}

func (m memoryContentSeeder) SaveItem(_ context.Context, item model.Item) error {
	m.content.PutItem(item)
	return nil
}

func (m memoryContentSeeder) SaveTerm(_ context.Context, term model.Term) error {
	m.content.PutTerm(term)
	return nil
}

func loadSeed(ctx context.Context, path string, content contentSeeder, values store.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}

	for _, term := range doc.Terms {
		if err := content.SaveTerm(ctx, model.Term(term)); err != nil {
			return err
		}
	}
	for _, item := range doc.Items {
		if err := content.SaveItem(ctx, model.Item{
			ID:          item.ID,
			Title:       item.Title,
			ContentType: item.ContentType,
			Slug:        item.Slug,
			Excerpt:     item.Excerpt,
			Content:     item.Content,
			Status:      item.Status,
		}); err != nil {
			return err
		}
		for key, value := range item.Values {
			if err := values.SetValue(ctx, item.ID, key, seedValue(value)); err != nil {
				return fmt.Errorf("seed item %d: %w", item.ID, err)
			}
		}
	}
	return nil
}

// seedValue turns lists of maps into repeater rows.
func seedValue(value any) any {
	list, ok := value.([]any)
	if !ok || len(list) == 0 {
		return value
	}
	rows := make(model.Rows, 0, len(list))
	for i, entry := range list {
		fields, ok := entry.(map[string]any)
		if !ok {
			return value
		}
		row := model.Row{Index: strconv.Itoa(i), Fields: make(map[string]any, len(fields))}
		for key, raw := range fields {
			row.Fields[key] = seedValue(raw)
		}
		rows = append(rows, row)
	}
	return rows
}
