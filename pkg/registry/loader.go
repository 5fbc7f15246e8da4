package registry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-fieldtree/pkg/model"
)

// DefaultPattern selects registry documents when LoadFS is given no pattern.
const DefaultPattern = "**/*.{yaml,yml,json}"

// LoadOption configures LoadFS.
type LoadOption func(*loadConfig)

type loadConfig struct {
	pattern string
}

// WithPattern restricts loading to paths matching a doublestar pattern.
func WithPattern(pattern string) LoadOption {
	return func(cfg *loadConfig) {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			cfg.pattern = trimmed
		}
	}
}

// documentFile is the on-disk shape of a registry document:
//
//	groups:
//	  - id: group_1
//	    title: Details
//	    contentTypes: [post]
//	    fields:
//	      - key: field_1
//	        name: subtitle
//	        type: text
type documentFile struct {
	Groups []model.FieldGroup `json:"groups" yaml:"groups"`
}

// LoadFS walks fsys in lexical order and registers the groups of every
// matching JSON/YAML document. Groups keep file order, then in-file order.
// When fsys is nil the registry is empty.
func LoadFS(fsys fs.FS, options ...LoadOption) (*Memory, error) {
	cfg := loadConfig{pattern: DefaultPattern}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if !doublestar.ValidatePattern(cfg.pattern) {
		return nil, fmt.Errorf("registry: invalid document pattern %q", cfg.pattern)
	}

	registry := &Memory{byID: make(map[string]int)}
	if fsys == nil {
		return registry, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		ok, err := doublestar.Match(cfg.pattern, path)
		if err != nil || !ok {
			return err
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("registry: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}
		for _, group := range doc.Groups {
			if err := registry.Register(group); err != nil {
				return fmt.Errorf("%w (file %s)", err, path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return registry, nil
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("registry: file %s is empty", source)
	}

	if strings.EqualFold(filepath.Ext(source), ".json") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return documentFile{}, fmt.Errorf("registry: parse %s: %w", source, err)
		}
		return doc, nil
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("registry: parse %s: %w", source, err)
	}
	return doc, nil
}
