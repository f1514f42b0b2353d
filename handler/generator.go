package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/juju/errors"

	"github.com/flowdeck/flowdeck/types"
	"github.com/flowdeck/flowdeck/utils"
)

// TextGenerator is the prompt handler's only view of an AI provider.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (text string, model string, err error)
}

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiGenerator talks to the Gemini generateContent REST API over plain
// HTTP. No SDK: the request/response contract is small enough.
type GeminiGenerator struct {
	Client   *http.Client
	Endpoint string
	Model    string
	APIKey   string
}

func (g *GeminiGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, string, error) {
	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = defaultGeminiEndpoint
	}
	model := g.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	payload := map[string]any{
		"contents": []any{
			map[string]any{
				"parts": []any{map[string]any{"text": prompt}},
			},
		},
	}
	if systemPrompt != "" {
		payload["systemInstruction"] = map[string]any{
			"parts": []any{map[string]any{"text": systemPrompt}},
		}
	}

	b, err := utils.Serialize(payload)
	if err != nil {
		return "", model, errors.Trace(err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", endpoint, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", model, errors.Trace(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return "", model, types.NewRetryError(errors.Annotatef(err, "calling %s", url), 0)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model, types.NewRetryError(errors.Trace(err), 0)
	}
	if resp.StatusCode != http.StatusOK {
		return "", model, types.NewUpstreamError(resp.StatusCode, string(raw))
	}

	var decoded struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := utils.Unserialize(raw, &decoded); err != nil {
		return "", model, errors.Annotatef(err, "decoding generateContent response")
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", model, types.NewUpstreamError(resp.StatusCode, "empty candidates in response")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, model, nil
}
