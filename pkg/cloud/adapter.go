package cloud

import "context"

// Adapter defines the interface for cloud LLM provider adapters used as
// escalation targets.
type Adapter interface {
	// Complete sends a prompt to the model and returns the response text.
	Complete(ctx context.Context, model string, prompt string) (string, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}
