package entity

import "strings"

// CompletionRequest is the body POSTed to the conversation endpoint.
type CompletionRequest struct {
	Action                     string            `json:"action"`
	Messages                   []Message         `json:"messages"`
	Model                      string            `json:"model"`
	ConversationMode           map[string]string `json:"conversation_mode"`
	WebsocketRequestID         string            `json:"websocket_request_id"`
	ConversationID             string            `json:"conversation_id,omitempty"`
	ParentMessageID            string            `json:"parent_message_id"`
	TimezoneOffsetMin          int               `json:"timezone_offset_min"`
	HistoryAndTrainingDisabled bool              `json:"history_and_training_disabled"`
}

// NewCompletionRequest builds a request with the fixed fields the
// upstream endpoint requires; websocketRequestID must be a fresh UUID
// supplied by the caller, and parentMessageID is the id of the message
// to continue from (a fresh UUID when starting a new conversation).
func NewCompletionRequest(model string, messages []Message, conversationID, parentMessageID, websocketRequestID string, timezoneOffsetMin int) CompletionRequest {
	return CompletionRequest{
		Action:                     "next",
		Messages:                   messages,
		Model:                      model,
		ConversationMode:           map[string]string{"kind": "primary_assistant"},
		WebsocketRequestID:         websocketRequestID,
		ConversationID:             conversationID,
		ParentMessageID:            parentMessageID,
		TimezoneOffsetMin:          timezoneOffsetMin,
		HistoryAndTrainingDisabled: false,
	}
}

// CompletionMessageAuthor identifies who produced a streamed message.
type CompletionMessageAuthor struct {
	Role string `json:"role"`
}

// CompletionMessageContent carries the cumulative text-so-far.
type CompletionMessageContent struct {
	ContentType string   `json:"content_type"`
	Parts       []string `json:"parts"`
}

// CompletionFinishDetails reports why the upstream turn ended.
type CompletionFinishDetails struct {
	Type string `json:"type"`
}

// CompletionMessageMetadata carries finish details when the turn is over.
type CompletionMessageMetadata struct {
	FinishDetails *CompletionFinishDetails `json:"finish_details,omitempty"`
}

// CompletionMessage is the "message" field of a snapshot event.
type CompletionMessage struct {
	ID       string                    `json:"id"`
	Author   CompletionMessageAuthor   `json:"author"`
	Content  CompletionMessageContent  `json:"content"`
	Metadata CompletionMessageMetadata `json:"metadata"`
}

// Text joins the message's parts the way the upstream snapshot does.
func (m CompletionMessage) Text() string {
	return strings.Join(m.Content.Parts, "\n")
}

// CompletionResponse is the decoded JSON body of one SSE snapshot event.
type CompletionResponse struct {
	Message        *CompletionMessage `json:"message,omitempty"`
	ConversationID string             `json:"conversation_id,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// EventKind classifies a parsed SSE frame.
type EventKind int

const (
	EventData EventKind = iota
	EventDone
	EventHeartbeat
	EventText
	EventError
)

// CompletionEvent is the sum type produced by the SSE frame classifier.
type CompletionEvent struct {
	Kind     EventKind
	Response *CompletionResponse // set for EventData
	Text     string              // set for EventText
	Reason   string              // set for EventError
}

// CompletionResult is the terminal outcome of one driven stream.
type CompletionResult struct {
	Text             string
	ConversationID   string
	LastMessageID    string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}
