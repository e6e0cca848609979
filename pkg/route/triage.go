package route

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zen-systems/localgate/pkg/localmodel"
)

// Layer-3 triage asks the local model itself to rate the task. The answer is
// advisory and heavily defended: any transport error, timeout, or unparseable
// response falls back to the moderate default.

type triageResult struct {
	complexity int
	confidence float64
	label      string
	reason     string
}

var triageLevels = map[string]int{
	"trivial":  1,
	"simple":   2,
	"moderate": 3,
	"complex":  5,
	"expert":   6,
}

const (
	triageMinConfidence = 0.3
	triageMaxConfidence = 0.95
)

func triageDefault(why string) triageResult {
	return triageResult{
		complexity: 3,
		confidence: triageMinConfidence,
		label:      "moderate",
		reason:     "triage defaulted to moderate: " + why,
	}
}

func runTriage(ctx context.Context, chatter localmodel.Chatter, task, model string, timeoutMs int) triageResult {
	prompt := buildTriagePrompt(task)
	resp, err := chatter.Chat(ctx, prompt, localmodel.ChatOptions{
		Model:     model,
		TimeoutMs: timeoutMs,
		MaxTokens: 100,
		Format:    "json",
	})
	if err != nil {
		return triageDefault(fmt.Sprintf("request failed: %v", err))
	}

	parsed, err := parseTriageResponse(resp.Response)
	if err != nil {
		return triageDefault(err.Error())
	}
	return parsed
}

func buildTriagePrompt(task string) string {
	var sb strings.Builder
	sb.WriteString("Rate the difficulty of the following coding task.\n")
	sb.WriteString("Answer ONLY JSON: {\"difficulty\":\"trivial|simple|moderate|complex|expert\",\"confidence\":0-1}.\n\n")
	sb.WriteString("Task:\n")
	sb.WriteString(task)
	return sb.String()
}

type triagePick struct {
	Difficulty string  `json:"difficulty"`
	Confidence float64 `json:"confidence"`
}

func parseTriageResponse(content string) (triageResult, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var pick triagePick
	if err := json.Unmarshal([]byte(content), &pick); err != nil {
		return triageResult{}, fmt.Errorf("unparseable triage response")
	}

	label := strings.ToLower(strings.TrimSpace(pick.Difficulty))
	level, ok := triageLevels[label]
	if !ok {
		return triageResult{}, fmt.Errorf("triage difficulty %q not recognized", label)
	}

	confidence := pick.Confidence
	if confidence < triageMinConfidence {
		confidence = triageMinConfidence
	}
	if confidence > triageMaxConfidence {
		confidence = triageMaxConfidence
	}

	return triageResult{
		complexity: level,
		confidence: confidence,
		label:      label,
		reason:     fmt.Sprintf("local triage rated the task %s", label),
	}, nil
}
