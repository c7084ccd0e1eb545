package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileSource loads YAML configuration from BasePath.
//
// The base file is application.yaml (or .yml). When Profile is set,
// application.{Profile}.yaml is read on top of it; top-level keys of the
// profile file replace those of the base file. A missing profile file is
// ignored, a malformed one is an error.
//
//	configs/
//	  application.yaml
//	  application.prod.yaml
type FileSource struct {
	BasePath string
	Profile  string
}

func (f *FileSource) Name() string { return "file" }

// Load returns os.ErrNotExist if the base file is not found.
func (f *FileSource) Load(ctx context.Context) (map[string]any, error) {
	baseFile := findYAMLFile(f.BasePath, "application")
	if baseFile == "" {
		return nil, fmt.Errorf("application.yaml in %q: %w", f.BasePath, os.ErrNotExist)
	}

	data := map[string]any{}
	if err := readYAML(baseFile, data); err != nil {
		return nil, err
	}

	if f.Profile != "" {
		if profileFile := findYAMLFile(f.BasePath, "application."+f.Profile); profileFile != "" {
			if err := readYAML(profileFile, data); err != nil {
				return nil, err
			}
		}
	}
	return data, nil
}

// findYAMLFile looks for a file with either .yaml or .yml extension
func findYAMLFile(dir, basename string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, basename+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func readYAML(path string, out map[string]any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
