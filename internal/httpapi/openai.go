package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shenjinti/fgpt/internal/driver"
	"github.com/shenjinti/fgpt/internal/entity"
	"github.com/shenjinti/fgpt/internal/upstream"
	apperrors "github.com/shenjinti/fgpt/pkg/errors"
)

// runFunc matches (*driver.Driver).Run's signature — the handler
// depends on this function shape rather than the concrete driver type
// so it can be exercised with a stub in tests.
type runFunc func(ctx context.Context, messages []entity.Message, conversationID, parentMessageID string, sink driver.Sink) (entity.CompletionResult, error)

const facadeModel = "gpt-3.5-turbo"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	FinishReason string      `json:"finish_reason"`
	Message      chatMessage `json:"message"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Created float64      `json:"created"`
	Model   string       `json:"model"`
	Object  string       `json:"object"`
	Choices []chatChoice `json:"choices"`
	Usage   usage        `json:"usage"`
}

type streamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"`
}

type chatCompletionChunk struct {
	ID      string         `json:"id"`
	Created float64        `json:"created"`
	Model   string         `json:"model"`
	Object  string         `json:"object"`
	Choices []streamChoice `json:"choices"`
}

type openaiHandler struct {
	runner runFunc
	logger *zap.Logger
}

func (h *openaiHandler) toMessages(in []chatMessage) []entity.Message {
	out := make([]entity.Message, len(in))
	for i, m := range in {
		out[i] = entity.NewMessage(m.Role, m.Content)
	}
	return out
}

func (h *openaiHandler) ChatCompletions(c *gin.Context) {
	var req chatCompletionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Stream {
		h.handleStream(c, req)
		return
	}
	h.handleSync(c, req)
}

func (h *openaiHandler) handleSync(c *gin.Context, req chatCompletionsRequest) {
	requestID := upstream.NewRequestID()
	created := float64(time.Now().UnixNano()) / 1e9

	result, err := h.runner(c.Request.Context(), h.toMessages(req.Messages), "", "", func(string) {})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorReason(err)})
		return
	}

	c.JSON(http.StatusOK, chatCompletionResponse{
		ID:      requestID,
		Created: created,
		Model:   facadeModel,
		Object:  "chat.completion",
		Choices: []chatChoice{{
			Index:        0,
			FinishReason: result.FinishReason,
			Message:      chatMessage{Role: "assistant", Content: result.Text},
		}},
		Usage: usage{
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
			TotalTokens:      result.PromptTokens + result.CompletionTokens,
		},
	})
}

func (h *openaiHandler) handleStream(c *gin.Context, req chatCompletionsRequest) {
	requestID := upstream.NewRequestID()
	created := float64(time.Now().UnixNano()) / 1e9

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	writeChunk := func(delta streamDelta, finishReason *string) {
		chunk := chatCompletionChunk{
			ID:      requestID,
			Created: created,
			Model:   facadeModel,
			Object:  "chat.completion.chunk",
			Choices: []streamChoice{{Index: 0, Delta: delta, FinishReason: finishReason}},
		}
		c.SSEvent("", chunk)
		c.Writer.Flush()
	}

	_, err := h.runner(c.Request.Context(), h.toMessages(req.Messages), "", "", func(delta string) {
		writeChunk(streamDelta{Role: "assistant", Content: delta}, nil)
	})

	if err != nil {
		reason := "error"
		writeChunk(streamDelta{Content: errorReason(err)}, &reason)
		return
	}
}

// errorReason unwraps an *apperrors.Error to its bare upstream reason,
// rather than the "[KIND] reason" string its Error() method renders.
func errorReason(err error) string {
	var e *apperrors.Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return e.Body
	}
	return err.Error()
}

func (h *openaiHandler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data": []gin.H{{
			"id":     facadeModel,
			"object": "model",
			"owned_by": "fgpt",
		}},
	})
}
