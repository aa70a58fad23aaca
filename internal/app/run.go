package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/pipegrid/internal/supervisor"
)

// Run executes the configured pipeline once: it starts the status server,
// submits the run with inputs from the YAML inputs file, waits for the
// terminal status, and prints the resulting context snapshot as JSON.
func (a *App) Run(ctx context.Context) error {
	srv := a.startStatusServer()
	if srv != nil {
		defer a.stopStatusServer(srv)
	}

	if a.config.Pipeline == "" {
		fmt.Fprintln(a.outW, "Loaded pipelines:")
		for _, name := range a.registry.PipelineNames() {
			fmt.Fprintf(a.outW, "  %s\n", name)
		}
		return fmt.Errorf("no pipeline selected")
	}

	inputs, err := loadInputs(a.config.InputsFile)
	if err != nil {
		return err
	}

	rec, err := a.sup.SubmitWait(ctx, a.config.Pipeline, inputs)
	if err != nil {
		return err
	}
	a.logger.Info("Run finished.", "runID", rec.RunID, "status", rec.Status, "warnings", len(rec.Warnings))

	result, err := a.sup.Result(rec.RunID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if rec.Status != supervisor.StatusCompleted {
		return fmt.Errorf("run %s failed: %s", rec.RunID, rec.Error)
	}
	return nil
}

// loadInputs reads the initial execution-context values from a YAML file.
func loadInputs(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inputs file: %w", err)
	}
	var inputs map[string]any
	if err := yaml.Unmarshal(raw, &inputs); err != nil {
		return nil, fmt.Errorf("parse inputs file %q: %w", path, err)
	}
	return inputs, nil
}
