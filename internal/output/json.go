// # internal/output/json.go
package output

import (
	"encoding/json"

	"retest/internal/graph"
)

type jsonResult struct {
	Path          string `json:"path"`
	Distance      int    `json:"distance"`
	FilenameMatch int    `json:"filename_match"`
}

type jsonReport struct {
	Root     string       `json:"root"`
	Changed  []string     `json:"changed"`
	Results  []jsonResult `json:"results"`
	Warnings []string     `json:"warnings,omitempty"`
}

type JSONGenerator struct {
	selection *graph.Selection
}

func NewJSONGenerator(sel *graph.Selection) *JSONGenerator {
	return &JSONGenerator{selection: sel}
}

func (j *JSONGenerator) Generate() (string, error) {
	report := jsonReport{
		Root:     j.selection.Root,
		Changed:  j.selection.Changed,
		Results:  make([]jsonResult, 0, len(j.selection.Results)),
		Warnings: j.selection.Warnings,
	}
	for _, res := range j.selection.Results {
		report.Results = append(report.Results, jsonResult{
			Path:          res.Path,
			Distance:      res.Distance,
			FilenameMatch: res.Priority.FilenameMatch,
		})
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
