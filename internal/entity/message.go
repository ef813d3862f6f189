// Package entity holds the data shapes exchanged with the upstream
// conversational endpoint and the downstream OpenAI-compatible façade.
package entity

import "encoding/json"

// Message is one conversational turn. Role is one of "user", "system",
// or "assistant"; ContentType defaults to "text".
type Message struct {
	Role        string
	Content     string
	ContentType string
}

// NewMessage builds a Message with ContentType defaulted to "text".
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content, ContentType: "text"}
}

// MarshalJSON renders the nested wire form the upstream endpoint
// expects: {"author":{"role":...},"content":{"content_type":...,"parts":[content]}}.
func (m Message) MarshalJSON() ([]byte, error) {
	contentType := m.ContentType
	if contentType == "" {
		contentType = "text"
	}
	return json.Marshal(struct {
		Author  messageAuthor  `json:"author"`
		Content messageContent `json:"content"`
	}{
		Author:  messageAuthor{Role: m.Role},
		Content: messageContent{ContentType: contentType, Parts: []string{m.Content}},
	})
}

type messageAuthor struct {
	Role string `json:"role"`
}

type messageContent struct {
	ContentType string   `json:"content_type"`
	Parts       []string `json:"parts"`
}
