package contextpack

import (
	"fmt"
	"strings"

	"github.com/zen-systems/localgate/pkg/inspect"
)

// FileOutline is the structural summary of one packed file.
type FileOutline struct {
	Path       string            `json:"path"`
	Language   string            `json:"language"`
	TotalLines int               `json:"total_lines"`
	Classes    []string          `json:"classes,omitempty"`
	Functions  []string          `json:"functions,omitempty"`
	Sections   []inspect.Section `json:"sections,omitempty"`
	Imports    []string          `json:"imports,omitempty"`
}

// FileSlice is a contiguous range of raw file text.
type FileSlice struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Text      string `json:"text"`
	Tokens    int    `json:"tokens"`
}

// PackedContext is an immutable token-budgeted prompt assembly. Retries build
// a new, larger PackedContext via Expand rather than mutating this one.
type PackedContext struct {
	Task          string        `json:"task"`
	Outlines      []FileOutline `json:"outlines,omitempty"`
	Slices        []FileSlice   `json:"slices,omitempty"`
	TotalTokens   int           `json:"total_tokens"`
	Budget        int           `json:"budget"`
	FilesIncluded int           `json:"files_included"`
}

// EstimateTokens approximates the token count of text as ceil(chars/4).
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// RenderPrompt produces the final prompt text from the packed parts.
func (pc *PackedContext) RenderPrompt() string {
	var sb strings.Builder
	sb.WriteString(pc.Task)

	slicesByPath := make(map[string]*FileSlice, len(pc.Slices))
	for i := range pc.Slices {
		slicesByPath[pc.Slices[i].Path] = &pc.Slices[i]
	}

	for i := range pc.Outlines {
		outline := &pc.Outlines[i]
		sb.WriteString("\n\n")
		sb.WriteString(renderOutline(outline))
		if slice, ok := slicesByPath[outline.Path]; ok {
			sb.WriteString("\n")
			sb.WriteString(renderSlice(slice))
		}
	}

	return sb.String()
}

func renderOutline(o *FileOutline) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## File: %s (%s, %d lines)\n", o.Path, o.Language, o.TotalLines)
	if len(o.Imports) > 0 {
		fmt.Fprintf(&sb, "Imports: %s\n", strings.Join(o.Imports, ", "))
	}
	if len(o.Classes) > 0 {
		fmt.Fprintf(&sb, "Types: %s\n", strings.Join(o.Classes, ", "))
	}
	if len(o.Functions) > 0 {
		fmt.Fprintf(&sb, "Functions: %s\n", strings.Join(o.Functions, ", "))
	}
	for _, s := range o.Sections {
		fmt.Fprintf(&sb, "Section: %s (line %d)\n", s.Name, s.Line)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func renderSlice(s *FileSlice) string {
	return fmt.Sprintf("```%s lines %d-%d\n%s\n```", s.Path, s.StartLine, s.EndLine, s.Text)
}
