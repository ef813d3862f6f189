package entity

import (
	"encoding/json"
	"testing"
)

func TestMessageMarshalsNestedWireForm(t *testing.T) {
	msg := NewMessage("user", "hello there")

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Author struct {
			Role string `json:"role"`
		} `json:"author"`
		Content struct {
			ContentType string   `json:"content_type"`
			Parts       []string `json:"parts"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Author.Role != "user" {
		t.Errorf("author.role = %q, want user", decoded.Author.Role)
	}
	if decoded.Content.ContentType != "text" {
		t.Errorf("content.content_type = %q, want text", decoded.Content.ContentType)
	}
	if len(decoded.Content.Parts) != 1 || decoded.Content.Parts[0] != "hello there" {
		t.Errorf("content.parts = %#v, want [\"hello there\"]", decoded.Content.Parts)
	}
}
