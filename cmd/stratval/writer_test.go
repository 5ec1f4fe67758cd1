package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratval/stratval/internal/report"
)

func TestWriteReportArtifacts(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root)

	wantDir := filepath.Join(root, time.Now().Format("2006-01-02"))
	assert.Equal(t, wantDir, w.OutputDir())

	r := &report.Report{
		ID:         "r-123",
		StrategyID: "momo",
		Decision:   report.Decision{Verdict: report.VerdictConditional, Confidence: 0.6},
	}
	require.NoError(t, w.WriteReport(r))

	jsonData, err := os.ReadFile(filepath.Join(wantDir, "report_momo.json"))
	require.NoError(t, err)
	var decoded report.Report
	require.NoError(t, json.Unmarshal(jsonData, &decoded))
	assert.Equal(t, "r-123", decoded.ID)
	assert.Equal(t, report.VerdictConditional, decoded.Decision.Verdict)

	textData, err := os.ReadFile(filepath.Join(wantDir, "report_momo.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(textData), "momo")
	assert.Contains(t, string(textData), report.VerdictConditional)
}
