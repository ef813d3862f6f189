package entity

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestCompletionRequestOmitsConversationIDWhenEmpty(t *testing.T) {
	req := NewCompletionRequest("model-x", []Message{NewMessage("user", "hi")}, "", "parent-1", "ws-1", 0)

	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "conversation_id") {
		t.Errorf("conversation_id must be omitted when empty, got: %s", raw)
	}
	if !strings.Contains(string(raw), `"parent_message_id":"parent-1"`) {
		t.Errorf("parent_message_id must always be present, got: %s", raw)
	}
	if !strings.Contains(string(raw), `"action":"next"`) {
		t.Errorf("action must be \"next\", got: %s", raw)
	}
}

func TestCompletionMessageTextJoinsParts(t *testing.T) {
	msg := CompletionMessage{
		Content: CompletionMessageContent{Parts: []string{"line one", "line two"}},
	}
	if got, want := msg.Text(), "line one\nline two"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}
