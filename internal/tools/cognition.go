package tools

import (
	"context"

	"github.com/meshrepublic/kudzu/internal/brain"
	"github.com/meshrepublic/kudzu/internal/hologram"
)

// CognitionAdapter bridges Client's tool-use loop into hologram.State's
// narrower stimulate() contract: a single free-text prompt in, free text
// plus structured actions out. Actions stay empty here — turning tool
// calls into Action values belongs to a node's own action vocabulary, not
// this adapter.
type CognitionAdapter struct {
	Client *Client
	Model  string
}

var _ hologram.CognitionClient = (*CognitionAdapter)(nil)

func (a *CognitionAdapter) Generate(ctx context.Context, prompt string) (hologram.CognitionResult, error) {
	result, err := a.Client.Converse(ctx, "", prompt, nil, nil, brain.ModelOptions{Model: a.Model})
	if err != nil {
		return hologram.CognitionResult{}, err
	}
	return hologram.CognitionResult{Response: result.Text}, nil
}
