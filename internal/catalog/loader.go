package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"vistora/internal/common/fsutil"
)

// File is the on-disk catalog document.
type File struct {
	Cards   []Card   `json:"cards" yaml:"cards" toml:"cards"`
	Presets []Preset `json:"presets" yaml:"presets" toml:"presets"`
}

// LoadFile reads a catalog from a YAML, JSON or TOML file, chosen by extension.
// A leading '~' is expanded to the user's home directory.
func LoadFile(path string) (*Catalog, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f File
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &f)
	case ".json":
		err = json.Unmarshal(b, &f)
	case ".toml":
		err = toml.Unmarshal(b, &f)
	default:
		return nil, fmt.Errorf("unsupported catalog file extension: %s", filepath.Ext(p))
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(f.Cards, f.Presets)
}
