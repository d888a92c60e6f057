package rationale

import (
	"strings"
	"unicode/utf8"
)

const SystemPrompt = `You are a compliance analyst. You explain whether a regulatory requirement is supported by the evidence provided, citing only that evidence.`

const instructions = `Summarize the compliance status for the requirement using only the evidence. If evidence is missing, say so explicitly.`

// BuildPrompt lays out the requirement followed by the evidence snippets in rank order.
func BuildPrompt(requirement string, snippets []string) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nRequirement: ")
	sb.WriteString(requirement)
	sb.WriteString("\n\nEvidence:\n")
	sb.WriteString(strings.Join(snippets, "\n"))
	return sb.String()
}

// DefaultSnippetBudget caps the excerpt quoted by Fallback, in characters.
const DefaultSnippetBudget = 600

// Fallback is the deterministic rationale used when no generator is
// available or the generator fails.
func Fallback(requirement string, snippets []string, budget int) string {
	if len(snippets) == 0 {
		return "Requirement: " + requirement + "\nEvidence missing."
	}
	if budget <= 0 {
		budget = DefaultSnippetBudget
	}
	return "Requirement: " + requirement + "\nEvidence snippet: " + leadingChars(snippets[0], budget)
}

// RetrievalFailed is the rationale recorded when chunks could not be read.
func RetrievalFailed(requirement string, err error) string {
	return "Requirement: " + requirement + "\nEvidence retrieval failed: " + err.Error()
}

func leadingChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
