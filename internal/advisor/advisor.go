package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"toolcrib/internal/models"
)

// Advisor drafts the forensic verdict stamped into a case at HR closeout.
// The verdict is advisory prose; the case's structured outcome is always the
// resolution pathway chosen by the operator, never the model's output.
type Advisor struct {
	model llms.LLM
}

// New creates an advisor over the given model.
func New(model llms.LLM) *Advisor {
	return &Advisor{model: model}
}

// Draft summarizes the case history into a short verdict.
func (a *Advisor) Draft(ctx context.Context, c models.Case, pathway models.ResolutionPathway) (string, error) {
	if a == nil || a.model == nil {
		return "", fmt.Errorf("no model configured")
	}

	var history strings.Builder
	for _, h := range c.History {
		fmt.Fprintf(&history, "- %s at stage %s by %s: %s\n", h.Action, h.Stage, h.Actor, h.Notes)
	}

	prompt := fmt.Sprintf(
		"Write a two-sentence forensic verdict for an asset liability case being closed.\n"+
			"Custodian: %s. Liability: %d unit(s) of tool %s valued at %.2f.\n"+
			"Chosen resolution: %s.\nAction history:\n%s"+
			"Respond with the verdict text only.",
		c.StaffName, c.Quantity, c.ToolID, c.MonetaryValue, pathway, history.String())

	out, err := a.model.Call(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("verdict draft failed: %w", err)
	}
	return strings.TrimSpace(out), nil
}
