package llm

import (
	_ "embed"
	"strings"
)

var (
	//go:embed prompts/system.txt
	systemPrompt string
	//go:embed prompts/general.txt
	promptGeneral string
	//go:embed prompts/summary.txt
	promptSummary string
	//go:embed prompts/extract.txt
	promptExtract string
	//go:embed prompts/raw.txt
	promptRaw string
)

// Prompt kinds.
const (
	PromptGeneral = "general"
	PromptSummary = "summary"
	PromptExtract = "extract"
	PromptRaw     = "raw"
)

// SystemPrompt is sent with every analysis request.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

// BuildPrompt prefixes content with the template for kind. Unknown kinds use the general template.
func BuildPrompt(kind, content string) string {
	switch kind {
	case PromptSummary:
		return promptSummary + content
	case PromptExtract:
		return promptExtract + content
	case PromptRaw:
		return promptRaw + content
	default:
		return promptGeneral + content
	}
}
