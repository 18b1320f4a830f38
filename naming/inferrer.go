package naming

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wasumayan/SorryIMissedThis-sub001/internal/jsonutil"
	"github.com/wasumayan/SorryIMissedThis-sub001/llm"
)

// Inferrer is the name-inference capability: given a sample of the
// other party's messages, produce a name or nothing. Failures are
// treated by callers as "no answer", never as fatal.
type Inferrer interface {
	InferName(ctx context.Context, messages []string, contextHint string) (string, error)
}

const maxInferredNameRunes = 64

type LLMInferrer struct {
	Client llm.Client
	Model  string
}

func NewLLMInferrer(client llm.Client, model string) *LLMInferrer {
	return &LLMInferrer{
		Client: client,
		Model:  strings.TrimSpace(model),
	}
}

func (x *LLMInferrer) InferName(ctx context.Context, messages []string, contextHint string) (string, error) {
	if x == nil || x.Client == nil {
		return "", fmt.Errorf("nil llm inferrer")
	}
	if strings.TrimSpace(x.Model) == "" {
		return "", fmt.Errorf("empty llm model")
	}
	if len(messages) == 0 {
		return "", nil
	}
	payload := map[string]any{
		"messages":     messages,
		"contact_hint": strings.TrimSpace(contextHint),
		"rules": []string{
			"Return JSON only.",
			"Output schema: {\"name\":\"...\"} or {\"name\":null}.",
			"name is the sender's own name if they state or sign it.",
			"Use null when the messages never reveal the sender's name.",
			"Never invent a name.",
		},
	}
	input, _ := json.Marshal(payload)
	system := strings.Join([]string{
		"You read messages written by one person and extract that person's name.",
		"Return JSON only, no markdown.",
	}, " ")
	res, err := x.Client.Chat(ctx, llm.Request{
		Model:     x.Model,
		ForceJSON: true,
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: string(input)},
		},
		Parameters: map[string]any{
			"temperature": 0,
			"max_tokens":  100,
		},
	})
	if err != nil {
		return "", err
	}
	raw := strings.TrimSpace(res.Text)
	if raw == "" {
		return "", nil
	}
	var out llmNameResponse
	if err := jsonutil.DecodeWithFallback(raw, &out); err != nil {
		return "", fmt.Errorf("decode llm name response: %w", err)
	}
	name := strings.TrimSpace(out.Name)
	if strings.EqualFold(name, "null") || strings.EqualFold(name, "unknown") {
		return "", nil
	}
	if runes := []rune(name); len(runes) > maxInferredNameRunes {
		name = strings.TrimSpace(string(runes[:maxInferredNameRunes]))
	}
	return name, nil
}

type llmNameResponse struct {
	Name string `json:"name"`
}
