package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/stratval/stratval/internal/report"
)

// Writer handles writing report artifacts to disk. Persistence beyond these
// flat files belongs to the host application.
type Writer struct {
	outputDir string
}

// NewWriter creates an artifact writer rooted at outputDir/<date>
func NewWriter(outputDir string) *Writer {
	dateDir := time.Now().Format("2006-01-02")
	return &Writer{outputDir: filepath.Join(outputDir, dateDir)}
}

// OutputDir returns the full output directory path
func (w *Writer) OutputDir() string {
	return w.outputDir
}

// WriteReport writes the machine-readable and human-readable report forms
func (w *Writer) WriteReport(r *report.Report) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	jsonFile := filepath.Join(w.outputDir, fmt.Sprintf("report_%s.json", r.StrategyID))
	if err := os.WriteFile(jsonFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write report JSON: %w", err)
	}

	textFile := filepath.Join(w.outputDir, fmt.Sprintf("report_%s.txt", r.StrategyID))
	if err := os.WriteFile(textFile, []byte(report.Render(r)), 0644); err != nil {
		return fmt.Errorf("failed to write report text: %w", err)
	}

	return nil
}
