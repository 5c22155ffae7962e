package reason

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sanhita/internal/kb"
	"github.com/ppiankov/sanhita/internal/model"
)

const systemPrompt = `You are a legal analysis assistant for Indian criminal law.
You read First Information Reports and identify applicable sections of the
Bharatiya Nyaya Sanhita (BNS) and the Bharatiya Nagarik Suraksha Sanhita (BNSS).
Report only what the narrative supports. When asked for JSON, reply with JSON only.`

func buildSummaryPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Summarize the following incident narrative in 2-3 sentences.\n")
	b.WriteString("Describe only the criminal acts: who did what to whom, with what means.\n")
	b.WriteString("Do not speculate and do not cite legal sections.\n\n")
	b.WriteString("NARRATIVE:\n")
	b.WriteString(text)
	return b.String()
}

func buildSubstantivePrompt(base *kb.KnowledgeBase, text, summary string) string {
	var b strings.Builder
	b.WriteString("Identify the BNS offenses disclosed by this incident.\n\n")

	b.WriteString("Consider these categories and offenses:\n")
	byCategory := make(map[string][]string)
	for _, e := range base.Substantive() {
		byCategory[e.Category] = append(byCategory[e.Category], fmt.Sprintf("%s (s. %s)", e.Offense, e.Section))
	}
	for _, category := range base.Categories() {
		offenses := byCategory[category]
		if len(offenses) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", category, strings.Join(offenses, ", "))
	}

	b.WriteString("\nSUMMARY:\n")
	b.WriteString(summary)
	b.WriteString("\n\nNARRATIVE:\n")
	b.WriteString(text)

	b.WriteString("\n\nRespond with a JSON array only. Each element:\n")
	b.WriteString(`{"section": "309", "offense": "robbery", "description": "...", "punishment": "...", "relevance": "high|medium|low"}`)
	b.WriteString("\nOrder the array from most to least relevant.\n")
	return b.String()
}

func buildProceduralPrompt(base *kb.KnowledgeBase, text, summary string, findings []model.SubstantiveFinding) string {
	var b strings.Builder
	b.WriteString("Identify the BNSS procedural provisions that apply to this case.\n\n")

	b.WriteString("Consider these topics:\n")
	for _, e := range base.Procedural() {
		fmt.Fprintf(&b, "- %s: s. %s %s\n", e.Topic, e.Section, e.Title)
	}

	b.WriteString("\nOFFENSES IDENTIFIED:\n")
	if len(findings) == 0 {
		b.WriteString("- none\n")
	}
	for _, f := range findings {
		fmt.Fprintf(&b, "- %s (BNS s. %s)\n", f.Entry.Offense, f.Entry.Section)
	}

	b.WriteString("\nSUMMARY:\n")
	b.WriteString(summary)
	b.WriteString("\n\nNARRATIVE:\n")
	b.WriteString(text)

	b.WriteString("\n\nRespond with a JSON array only. Each element:\n")
	b.WriteString(`{"section": "173", "title": "...", "description": "...", "applicableWhy": "..."}`)
	b.WriteString("\nList provisions in the order they arise in the case.\n")
	return b.String()
}
