package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GenerateContentResponseSchema is the subset of the generateContent response we rely on:
// at least one candidate whose content carries at least one part.
func GenerateContentResponseSchema() map[string]any {
	part := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
	}
	content := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"parts": map[string]any{"type": "array", "minItems": 1, "items": part},
		},
		"required": []string{"parts"},
	}
	candidate := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content":      content,
			"finishReason": map[string]any{"type": "string"},
		},
		"required": []string{"content"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"candidates": map[string]any{"type": "array", "minItems": 1, "items": candidate},
		},
		"required": []string{"candidates"},
	}
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// ResponseText validates raw against GenerateContentResponseSchema and returns the
// first candidate's first part text, trimmed. The text may be empty.
func ResponseText(raw []byte) (string, string, error) {
	if err := ValidateJSONAgainstSchema(GenerateContentResponseSchema(), raw); err != nil {
		return "", "", err
	}
	var resp generateContentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", "", fmt.Errorf("decode response: %w", err)
	}
	c := resp.Candidates[0]
	return strings.TrimSpace(c.Content.Parts[0].Text), c.FinishReason, nil
}
