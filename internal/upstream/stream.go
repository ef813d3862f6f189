package upstream

import (
	"io"

	"github.com/shenjinti/fgpt/internal/entity"
	"github.com/shenjinti/fgpt/internal/tokenizer"
)

// CompletionStream wraps the frame reader with the cumulative-to-delta
// reduction state described for component F: a monotonically growing
// text buffer, the conversation/message identifiers last seen, the
// derived finish reason, and a running completion-token count.
type CompletionStream struct {
	frames  *frameReader
	counter tokenizer.Counter

	textbuf        string
	conversationID string
	lastMessageID  string
	finishReason   string
	tokens         int
}

// NewCompletionStream wraps body for incremental reading.
func NewCompletionStream(body io.Reader, counter tokenizer.Counter) *CompletionStream {
	return &CompletionStream{frames: newFrameReader(body), counter: counter}
}

// Delta is one reduced step: the text added since the last accepted
// snapshot (empty when a snapshot adds nothing), or a Done/Error signal
// with no text attached. Heartbeat and plain-text frames are skipped by
// Next and never produce a Delta.
type Delta struct {
	Text  string
	Kind  entity.EventKind
	Error string
}

// Next advances the stream by one frame. It returns io.EOF once the
// upstream connection closes with no more frames pending.
func (s *CompletionStream) Next() (Delta, error) {
	for {
		payload, err := s.frames.next()
		if err != nil {
			return Delta{}, err
		}

		event := classify(payload)
		switch event.Kind {
		case entity.EventDone:
			return Delta{Kind: entity.EventDone}, nil
		case entity.EventHeartbeat, entity.EventText:
			continue
		case entity.EventError:
			return Delta{Kind: entity.EventError, Error: event.Reason}, nil
		case entity.EventData:
			delta, ok := s.applySnapshot(event.Response)
			if !ok {
				continue
			}
			return Delta{Kind: entity.EventData, Text: delta}, nil
		}
	}
}

// applySnapshot folds one cumulative snapshot into the stream's state,
// returning the new suffix and whether it should be emitted.
func (s *CompletionStream) applySnapshot(resp *entity.CompletionResponse) (string, bool) {
	if resp.Message == nil || resp.Message.Author.Role != "assistant" {
		return "", false
	}

	text := resp.Message.Text()

	// Monotonicity guard: the server sends cumulative snapshots; a
	// snapshot shorter than what's already buffered is late or
	// reordered and must be discarded rather than rewinding textbuf.
	if len(text) < len(s.textbuf) {
		return "", false
	}

	delta := text[len(s.textbuf):]
	s.textbuf = text
	if resp.ConversationID != "" {
		s.conversationID = resp.ConversationID
	}
	if resp.Message.ID != "" {
		s.lastMessageID = resp.Message.ID
	}
	s.finishReason = deriveFinishReason(resp.Message.Metadata.FinishDetails)
	s.tokens = s.counter.Count(text)

	return delta, true
}

// deriveFinishReason maps upstream finish_details to the exported
// reason: missing -> "", "max_tokens" -> "length", anything else -> "stop".
func deriveFinishReason(details *entity.CompletionFinishDetails) string {
	if details == nil {
		return ""
	}
	if details.Type == "max_tokens" {
		return "length"
	}
	return "stop"
}

// Text returns the cumulative reply text accumulated so far.
func (s *CompletionStream) Text() string { return s.textbuf }

// ConversationID returns the most recently seen conversation id.
func (s *CompletionStream) ConversationID() string { return s.conversationID }

// LastMessageID returns the most recently seen assistant message id.
func (s *CompletionStream) LastMessageID() string { return s.lastMessageID }

// FinishReason returns the most recently derived finish reason.
func (s *CompletionStream) FinishReason() string { return s.finishReason }

// CompletionTokens returns the running token count of the cumulative text.
func (s *CompletionStream) CompletionTokens() int { return s.tokens }
