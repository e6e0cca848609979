package cloud

import (
	"context"
	"fmt"

	"github.com/zen-systems/localgate/pkg/lightpass"
	"github.com/zen-systems/localgate/pkg/repair"
)

// Forwarder sends escalation payloads to a cloud adapter. It implements
// lightpass.EscalationForwarder.
type Forwarder struct {
	adapter      Adapter
	defaultModel string
}

// NewForwarder creates a forwarder over the given adapter.
func NewForwarder(adapter Adapter, defaultModel string) *Forwarder {
	if defaultModel == "" {
		models := adapter.Models()
		if len(models) > 0 {
			defaultModel = models[0]
		}
	}
	return &Forwarder{adapter: adapter, defaultModel: defaultModel}
}

// Forward renders the escalation into a handoff prompt and completes it on
// the suggested model, falling back to the forwarder's default.
func (f *Forwarder) Forward(ctx context.Context, esc *lightpass.Escalation) (string, error) {
	model := f.defaultModel
	if esc.SuggestedModel != "" && supportsModel(f.adapter, esc.SuggestedModel) {
		model = esc.SuggestedModel
	}
	if model == "" {
		return "", fmt.Errorf("no cloud model available for escalation")
	}

	prompt := repair.HandoffPrompt(esc.Task, lightpass.RenderDigest(esc.Files), esc.Reasons)
	response, err := f.adapter.Complete(ctx, model, prompt)
	if err != nil && IsTransient(err) {
		// Rate limits and upstream 5xx get a single retry.
		response, err = f.adapter.Complete(ctx, model, prompt)
	}
	return response, err
}

func supportsModel(a Adapter, model string) bool {
	for _, m := range a.Models() {
		if m == model {
			return true
		}
	}
	return false
}
