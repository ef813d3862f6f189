// Package driver orchestrates one completion end to end: it starts
// the upstream call, feeds each delta to a sink, and returns the
// final totals once the stream ends.
package driver

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/shenjinti/fgpt/internal/entity"
	"github.com/shenjinti/fgpt/internal/tokenizer"
	"github.com/shenjinti/fgpt/internal/upstream"
	apperrors "github.com/shenjinti/fgpt/pkg/errors"
)

// Sink receives each non-empty delta as it's produced.
type Sink func(delta string)

// Driver holds everything needed to run completions: the shared HTTP
// client, language/device configuration, and the shared token counter.
type Driver struct {
	Client   *http.Client
	Lang     string
	DeviceID string
	Model    string
	Counter  tokenizer.Counter
	Logger   *zap.Logger
}

// Run drives one completion to a result. Cancelling ctx aborts the
// stream promptly; whatever partial text has accumulated is still
// returned.
func (d *Driver) Run(ctx context.Context, messages []entity.Message, conversationID, parentMessageID string, sink Sink) (entity.CompletionResult, error) {
	started, err := upstream.StartCompletion(ctx, d.Client, d.Lang, d.DeviceID, d.Model, messages, conversationID, parentMessageID, d.Counter, d.Logger)
	if err != nil {
		return entity.CompletionResult{}, err
	}
	defer started.Body.Close()

	stream := upstream.NewCompletionStream(started.Body, d.Counter)

	for {
		select {
		case <-ctx.Done():
			return d.partialResult(stream, started.PromptTokens), nil
		default:
		}

		delta, err := stream.Next()
		if err == io.EOF {
			return d.result(stream, started.PromptTokens), nil
		}
		if err != nil {
			if apperrors.Is(err, apperrors.KindTransport) {
				// Transport failures mid-stream terminate cleanly with
				// whatever partial text has accumulated.
				return d.partialResult(stream, started.PromptTokens), nil
			}
			return entity.CompletionResult{}, err
		}

		switch delta.Kind {
		case entity.EventDone:
			return d.result(stream, started.PromptTokens), nil
		case entity.EventError:
			res := d.partialResult(stream, started.PromptTokens)
			res.FinishReason = "error"
			return res, apperrors.UpstreamError(delta.Error)
		case entity.EventData:
			if delta.Text != "" {
				sink(delta.Text)
			}
		}
	}
}

func (d *Driver) result(stream *upstream.CompletionStream, promptTokens int) entity.CompletionResult {
	return entity.CompletionResult{
		Text:             stream.Text(),
		ConversationID:   stream.ConversationID(),
		LastMessageID:    stream.LastMessageID(),
		FinishReason:     stream.FinishReason(),
		PromptTokens:     promptTokens,
		CompletionTokens: stream.CompletionTokens(),
	}
}

func (d *Driver) partialResult(stream *upstream.CompletionStream, promptTokens int) entity.CompletionResult {
	return d.result(stream, promptTokens)
}
