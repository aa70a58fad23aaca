package hcl

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
)

// Loader parses HCL pipeline manifests into the agnostic config model.
type Loader struct{}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load implements config.Loader. Each path may be a single .hcl file or a
// directory searched recursively.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	model := &config.Model{Pipelines: make(map[string]*config.Pipeline)}

	var files []string
	for _, path := range paths {
		found, err := findManifests(path)
		if err != nil {
			return nil, fmt.Errorf("discover manifests in %q: %w", path, err)
		}
		files = append(files, found...)
	}
	logger.Debug("Discovered manifest files.", "count", len(files))

	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parse %q: %w", file, diags)
		}

		var root Root
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("decode %q: %w", file, diags)
		}

		for _, p := range root.Pipelines {
			if _, exists := model.Pipelines[p.Name]; exists {
				return nil, fmt.Errorf("pipeline %q defined more than once", p.Name)
			}
			translated, err := translatePipeline(p)
			if err != nil {
				return nil, fmt.Errorf("pipeline %q in %q: %w", p.Name, file, err)
			}
			model.Pipelines[p.Name] = translated
			logger.Debug("Loaded pipeline definition.", "pipeline", p.Name, "stages", len(p.Stages))
		}
	}

	return model, nil
}

// findManifests returns every .hcl file under path, or path itself when it
// is a regular file.
func findManifests(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".hcl") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
