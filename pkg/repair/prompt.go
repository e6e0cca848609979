package repair

import (
	"fmt"
	"strings"

	"github.com/zen-systems/localgate/pkg/gate"
)

// RetryPrompt builds the second local attempt's prompt: the expanded packed
// context plus explicit instructions about what the first attempt got wrong.
func RetryPrompt(packedPrompt string, firstGate *gate.Result) string {
	var sb strings.Builder

	sb.WriteString(packedPrompt)
	sb.WriteString("\n\nYour previous answer failed these quality checks:\n")
	for _, check := range firstGate.SoftFailures {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", check.Name, check.Reason))
	}
	for _, check := range firstGate.HardFailures {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", check.Name, check.Reason))
	}
	sb.WriteString("\nAnswer again. Be direct and complete; do not hedge, do not leave placeholders.")

	return sb.String()
}

// HandoffPrompt renders an escalation payload into a prompt for the cloud
// model: the task, a compact file digest, and why local execution failed.
func HandoffPrompt(task, fileDigest string, reasons []string) string {
	var sb strings.Builder

	sb.WriteString(task)
	if fileDigest != "" {
		sb.WriteString("\n\nRelevant files:\n")
		sb.WriteString(fileDigest)
	}
	if len(reasons) > 0 {
		sb.WriteString("\n\nA smaller local model attempted this task and failed:\n")
		for _, reason := range reasons {
			sb.WriteString("- ")
			sb.WriteString(reason)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
