package assistant

import (
	"context"
	"fmt"
	"slices"

	"github.com/notedcloud/noted/pkg/models"
)

// ModelInfo describes a selectable model.
type ModelInfo struct {
	ID            string
	Name          string
	Description   string
	ContextLength int
}

// DefaultModels are offered before the user adds custom ones.
var DefaultModels = []ModelInfo{
	{
		ID:            "anthropic/claude-4-sonnet",
		Name:          "Claude 4 Sonnet",
		Description:   "Capable general purpose model from Anthropic",
		ContextLength: 200000,
	},
	{
		ID:            "moonshotai/kimi-k2",
		Name:          "Kimi (Moonshot) 128K",
		Description:   "Kimi model with an extended context",
		ContextLength: 128000,
	},
}

// Choices returns the default model ids followed by the user's custom ones,
// without duplicates.
func Choices(settings models.Settings) []string {
	ids := make([]string, 0, len(DefaultModels)+len(settings.CustomModels))
	for _, m := range DefaultModels {
		ids = append(ids, m.ID)
	}
	for _, id := range settings.CustomModels {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Models lists the models the remote API offers.
func (c *Client) Models(ctx context.Context) ([]ModelInfo, error) {
	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	out := make([]ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, ModelInfo{ID: m.ID, Name: m.ID})
	}
	return out, nil
}
