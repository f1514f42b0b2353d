package handler

import (
	"context"

	"github.com/flowdeck/flowdeck/types"
)

type testRunContext struct {
	context.Context
}

func (c testRunContext) RunID() string {
	return "test-run-id"
}

func testCtx() types.Context {
	return testRunContext{Context: context.Background()}
}

func makeNode(id, nodeType string, config types.Data) *types.ResolvedNode {
	return &types.ResolvedNode{
		Node: types.Node{
			ID:   id,
			Type: nodeType,
			Data: types.NodeData{Config: config},
		},
	}
}

// echoGenerator answers every prompt with the prompt itself.
type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, string, error) {
	return prompt, "echo-model", nil
}
