package driver

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/shenjinti/fgpt/internal/entity"
)

type countingCounter struct{}

func (countingCounter) Count(text string) int { return len(text) }

// fakeTransport scripts the two upstream calls the driver issues: the
// requirements handshake and the conversation SSE stream.
type fakeTransport struct{}

func (fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	switch {
	case strings.Contains(req.URL.Path, "sentinel/chat-requirements"):
		body := `{"token":"T","proofofwork":{"required":false,"seed":"","difficulty":""}}`
		return &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	case strings.Contains(req.URL.Path, "/conversation"):
		body := `data: {"message":{"id":"m1","author":{"role":"assistant"},"content":{"content_type":"text","parts":["hi there"]},"metadata":{"finish_details":{"type":"stop"}}},"conversation_id":"c1"}

data: [DONE]

`
		return &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	default:
		return &http.Response{StatusCode: 404, Body: io.NopCloser(strings.NewReader("")), Header: make(http.Header)}, nil
	}
}

func TestDriverRunProducesTotalTokenAccounting(t *testing.T) {
	d := &Driver{
		Client:   &http.Client{Transport: fakeTransport{}},
		Lang:     "en-US",
		DeviceID: "device-1",
		Model:    "model-x",
		Counter:  countingCounter{},
		Logger:   zap.NewNop(),
	}

	var deltas []string
	result, err := d.Run(context.Background(), []entity.Message{entity.NewMessage("user", "hi")}, "", "", func(delta string) {
		deltas = append(deltas, delta)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, want := strings.Join(deltas, ""), "hi there"; got != want {
		t.Fatalf("concatenated deltas = %q, want %q", got, want)
	}
	if result.Text != "hi there" {
		t.Fatalf("result.Text = %q, want %q", result.Text, "hi there")
	}
	if result.FinishReason != "stop" {
		t.Fatalf("result.FinishReason = %q, want stop", result.FinishReason)
	}
	if result.PromptTokens+result.CompletionTokens == 0 {
		t.Fatalf("expected non-zero total token accounting")
	}
	if result.ConversationID != "c1" {
		t.Fatalf("result.ConversationID = %q, want c1", result.ConversationID)
	}
}
