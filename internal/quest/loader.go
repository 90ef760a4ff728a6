package quest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
)

// catalogFile is the on-disk shape for both YAML and TOML catalogs.
type catalogFile struct {
	Quests []domain.QuestTemplate `yaml:"quests" toml:"quests"`
}

// LoadCatalog reads a catalog file. The format is chosen by extension:
// .yaml/.yml or .toml. An empty path yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		slog.Info("using built-in quest catalog", "count", len(DefaultTemplates()))
		return NewCatalog(DefaultTemplates())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	templates, err := ParseCatalog(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	c, err := NewCatalog(templates)
	if err != nil {
		return nil, err
	}

	slog.Info("quest catalog loaded", "path", path, "count", c.Len())
	return c, nil
}

// ParseCatalog decodes catalog bytes for the given file extension.
func ParseCatalog(ext string, data []byte) ([]domain.QuestTemplate, error) {
	var f catalogFile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}
	return f.Quests, nil
}
