package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"voxledger/internal/app/model"
)

// ModelManifest maps each tier to its whisper.cpp model file. Loaded
// from an optional YAML file; tiers missing from the file fall back to
// <modelDir>/ggml-<tier>.bin.
type ModelManifest struct {
	Models map[string]string `yaml:"models"`
}

// LoadModelManifest reads the manifest at path and resolves a model file
// for every tier. An empty path skips the file and uses defaults only.
func LoadModelManifest(path, modelDir string) (map[model.ModelTier]string, error) {
	var manifest ModelManifest
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model manifest: %w", err)
		}
		if err := yaml.Unmarshal(raw, &manifest); err != nil {
			return nil, fmt.Errorf("parse model manifest: %w", err)
		}
	}

	paths := make(map[model.ModelTier]string, len(model.Tiers))
	for _, tier := range model.Tiers {
		if p, ok := manifest.Models[string(tier)]; ok && p != "" {
			paths[tier] = p
			continue
		}
		paths[tier] = filepath.Join(modelDir, fmt.Sprintf("ggml-%s.bin", tier))
	}

	for name := range manifest.Models {
		if !model.ModelTier(name).Valid() {
			return nil, fmt.Errorf("model manifest names unknown tier %q", name)
		}
	}
	return paths, nil
}
