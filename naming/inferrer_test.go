package naming

import (
	"context"
	"fmt"
	"testing"

	"github.com/wasumayan/SorryIMissedThis-sub001/llm"
)

type stubLLMClient struct {
	reply string
	err   error
	reqs  []llm.Request
}

func (s *stubLLMClient) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return llm.Result{}, s.err
	}
	return llm.Result{Text: s.reply}, nil
}

func TestLLMInferrerExtractsName(t *testing.T) {
	client := &stubLLMClient{reply: `{"name":"John"}`}
	inferrer := NewLLMInferrer(client, "gpt-5.2")

	name, err := inferrer.InferName(context.Background(), []string{"Hi, this is John from work"}, "+15551234567")
	if err != nil {
		t.Fatalf("InferName() error = %v", err)
	}
	if name != "John" {
		t.Fatalf("name = %q", name)
	}
	if len(client.reqs) != 1 || !client.reqs[0].ForceJSON {
		t.Fatalf("request shape mismatch: %+v", client.reqs)
	}
}

func TestLLMInferrerNullAnswer(t *testing.T) {
	for _, reply := range []string{`{"name":null}`, `{"name":""}`, `{"name":"null"}`} {
		client := &stubLLMClient{reply: reply}
		inferrer := NewLLMInferrer(client, "gpt-5.2")
		name, err := inferrer.InferName(context.Background(), []string{"ok"}, "")
		if err != nil {
			t.Fatalf("InferName(%q) error = %v", reply, err)
		}
		if name != "" {
			t.Fatalf("InferName(%q) = %q, want empty", reply, name)
		}
	}
}

func TestLLMInferrerFencedResponse(t *testing.T) {
	client := &stubLLMClient{reply: "```json\n{\"name\":\"John\"}\n```"}
	inferrer := NewLLMInferrer(client, "gpt-5.2")
	name, err := inferrer.InferName(context.Background(), []string{"this is John"}, "")
	if err != nil {
		t.Fatalf("InferName() error = %v", err)
	}
	if name != "John" {
		t.Fatalf("name = %q", name)
	}
}

func TestLLMInferrerEmptySample(t *testing.T) {
	client := &stubLLMClient{reply: `{"name":"John"}`}
	inferrer := NewLLMInferrer(client, "gpt-5.2")
	name, err := inferrer.InferName(context.Background(), nil, "")
	if err != nil || name != "" {
		t.Fatalf("InferName(empty) = %q, %v", name, err)
	}
	if len(client.reqs) != 0 {
		t.Fatalf("empty sample must not call the model")
	}
}

func TestLLMInferrerPropagatesClientError(t *testing.T) {
	client := &stubLLMClient{err: fmt.Errorf("timeout")}
	inferrer := NewLLMInferrer(client, "gpt-5.2")
	if _, err := inferrer.InferName(context.Background(), []string{"hi"}, ""); err == nil {
		t.Fatalf("expected error from failing client")
	}
}
