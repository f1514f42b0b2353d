package handler

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/flowdeck/flowdeck/types"
)

// promptHandler runs the AI prompt node.
//
// Config:
// - prompt: string, required; {{path.to.value}} tokens resolve against
//   the current context, missing paths become ""
// - systemPrompt: string, optional
type promptHandler struct {
	generator TextGenerator
}

func (h *promptHandler) Execute(ctx types.Context, node *types.ResolvedNode, data types.Data) (types.Data, error) {
	cfg := node.Data.Config

	systemPrompt, _ := cfg.GetString("systemPrompt")
	if systemPrompt == "" {
		systemPrompt = "You are a helpful assistant."
	}

	template, _ := cfg.GetString("prompt")
	prompt := Render(template, data)
	if prompt == "" {
		return nil, types.NewMissingFieldError(node.ID, "prompt")
	}

	log.Debugf("%s prompt node %s: %d chars after templating", ctx.RunID(), node.ID, len(prompt))
	text, model, err := h.generator.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	out := data.Clone()
	out.Set(node.ID+"_ai_result", text)
	out.Set("ai_response", types.Data{
		"text":      text,
		"model":     model,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	return out, nil
}
