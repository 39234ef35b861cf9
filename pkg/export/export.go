package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mikeboe/scholar-agent/pkg/research"
)

// Document is the JSON export shape for one pipeline run.
type Document struct {
	Topic     string                   `json:"topic"`
	Report    string                   `json:"report"`
	Subtopics []string                 `json:"subtopics"`
	Findings  map[string]string        `json:"findings"`
	Sources   []research.CuratedSource `json:"sources"`
	CreatedAt time.Time                `json:"created_at"`
}

// Markdown renders the report plus per-sub-topic findings and the source
// list as a single document.
func Markdown(result *research.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", result.Topic)
	b.WriteString(strings.TrimSpace(result.Report))
	b.WriteString("\n\n## Detailed Findings\n\n")

	rendered := make(map[string]bool)
	for _, sub := range result.Subtopics {
		if rendered[sub] {
			continue
		}
		rendered[sub] = true
		fmt.Fprintf(&b, "### %s\n%s\n\n---\n\n", sub, result.Findings[sub])
	}

	if len(result.Sources) > 0 {
		b.WriteString("## Sources\n")
		for i, s := range result.Sources {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, s.Title, s.URL)
		}
	}

	return b.String()
}

// WriteFiles writes report.md, report.json and sources.json into dir,
// creating it if needed, and returns the paths written.
func WriteFiles(dir string, result *research.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	doc := Document{
		Topic:     result.Topic,
		Report:    result.Report,
		Subtopics: result.Subtopics,
		Findings:  result.Findings,
		Sources:   result.Sources,
		CreatedAt: time.Now().UTC(),
	}

	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	sourcesJSON, err := json.MarshalIndent(result.Sources, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sources: %w", err)
	}

	files := map[string][]byte{
		"report.md":    []byte(Markdown(result)),
		"report.json":  docJSON,
		"sources.json": sourcesJSON,
	}

	paths := make([]string, 0, len(files))
	for _, name := range []string{"report.md", "report.json", "sources.json"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, files[name], 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
