package reason

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/ppiankov/sanhita/internal/kb"
	"github.com/ppiankov/sanhita/internal/model"
)

var errNoArray = errors.New("no JSON array in response")

type substantiveItem struct {
	Section     string `json:"section"`
	Offense     string `json:"offense"`
	Description string `json:"description"`
	Punishment  string `json:"punishment"`
	Relevance   string `json:"relevance"`
}

type proceduralItem struct {
	Section       string `json:"section"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ApplicableWhy string `json:"applicableWhy"`
}

// extractArray strips markdown fences and surrounding prose, returning the
// outermost JSON array in the reply
func extractArray(reply string) (string, error) {
	s := strings.TrimSpace(reply)

	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		// Drop the info string ("json") on the opening fence line
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end <= start {
		return "", errNoArray
	}
	return s[start : end+1], nil
}

// parseSubstantive decodes the reply into findings. One finding per offense:
// later duplicates are dropped. An empty array is an error.
func parseSubstantive(base *kb.KnowledgeBase, reply string) ([]model.SubstantiveFinding, error) {
	raw, err := extractArray(reply)
	if err != nil {
		return nil, err
	}

	var items []substantiveItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}

	findings := make([]model.SubstantiveFinding, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		name := kb.NormalizeName(item.Offense)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		rel := model.Relevance(strings.ToLower(strings.TrimSpace(item.Relevance)))
		switch rel {
		case model.RelevanceHigh, model.RelevanceMedium, model.RelevanceLow:
		default:
			rel = model.RelevanceLow
		}

		findings = append(findings, model.SubstantiveFinding{
			Entry:           base.ResolveSubstantive(item.Offense, strings.TrimSpace(item.Section), item.Description, item.Punishment),
			RelevanceScore:  rel.Score(),
			Relevance:       rel,
			MatchedKeywords: []string{},
		})
	}

	if len(findings) == 0 {
		return nil, errors.New("no substantive findings in response")
	}
	return findings, nil
}

// parseProcedural decodes the reply into procedural findings, keeping the
// service's order. An empty array is an error.
func parseProcedural(base *kb.KnowledgeBase, reply string) ([]model.ProceduralFinding, error) {
	raw, err := extractArray(reply)
	if err != nil {
		return nil, err
	}

	var items []proceduralItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}

	findings := make([]model.ProceduralFinding, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Section) == "" && strings.TrimSpace(item.Title) == "" {
			continue
		}
		findings = append(findings, model.ProceduralFinding{
			Entry:  base.ResolveProcedural(item.Section, item.Title, item.Description),
			Reason: strings.TrimSpace(item.ApplicableWhy),
		})
	}

	if len(findings) == 0 {
		return nil, errors.New("no procedural findings in response")
	}
	return findings, nil
}
