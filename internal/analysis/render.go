package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/sanhita/internal/model"
)

// RenderJSON writes the result as indented JSON
func RenderJSON(w io.Writer, result *model.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// WriteJSON writes the result to a file
func WriteJSON(result *model.AnalysisResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := RenderJSON(f, result); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// RenderSummary prints a human-readable digest of the result
func RenderSummary(w io.Writer, result *model.AnalysisResult) {
	fmt.Fprintf(w, "Fingerprint: %s (%s, %s)\n", result.Fingerprint, result.Strategy, result.Status)
	if result.Provider != "" {
		fmt.Fprintf(w, "Provider:    %s %s\n", result.Provider, result.Model)
	}
	if result.Summary != "" {
		fmt.Fprintf(w, "\nSummary:\n  %s\n", result.Summary)
	}

	fmt.Fprintf(w, "\nBNS sections (%d):\n", len(result.Substantive))
	if result.Degraded.Substantive {
		fmt.Fprintln(w, "  ! fallback set: the reasoning service reply could not be used")
	}
	for _, f := range result.Substantive {
		rel := fmt.Sprintf("score %d", f.RelevanceScore)
		if f.Relevance != "" {
			rel = string(f.Relevance)
		}
		fmt.Fprintf(w, "  s. %-8s %-28s [%s]\n", f.Entry.Section, f.Entry.Offense, rel)
		if len(f.MatchedKeywords) > 0 {
			fmt.Fprintf(w, "             matched: %s\n", strings.Join(f.MatchedKeywords, ", "))
		}
	}

	fmt.Fprintf(w, "\nBNSS sections (%d):\n", len(result.Procedural))
	if result.Degraded.Procedural {
		fmt.Fprintln(w, "  ! fallback set: the reasoning service reply could not be used")
	}
	for _, f := range result.Procedural {
		fmt.Fprintf(w, "  s. %-8s %s\n", f.Entry.Section, f.Entry.Title)
		if f.Reason != "" {
			fmt.Fprintf(w, "             %s\n", f.Reason)
		}
	}

	cognizable := "no serious offense identified"
	if result.Cognizable {
		cognizable = "cognizable"
	}
	fmt.Fprintf(w, "\nClassification: %s\n", cognizable)
}
