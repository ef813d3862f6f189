package upstream

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shenjinti/fgpt/internal/entity"
	"github.com/shenjinti/fgpt/internal/httpclient"
	"github.com/shenjinti/fgpt/internal/tokenizer"
	apperrors "github.com/shenjinti/fgpt/pkg/errors"
)

const conversationURL = "https://chat.openai.com/backend-anon/conversation"

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewRequestID produces a "chatcmpl-<28 alphanum>" identifier.
func NewRequestID() string {
	buf := make([]byte, 28)
	_, _ = rand.Read(buf)
	out := make([]byte, 28)
	for i, b := range buf {
		out[i] = alphanumeric[int(b)%len(alphanumeric)]
	}
	return "chatcmpl-" + string(out)
}

// Stream is a started completion call: the raw SSE body plus the
// request-scoped bookkeeping (request id, prompt tokens, start time).
// PromptTokens is the field carried into the final CompletionResult.
type Stream struct {
	Body         io.ReadCloser
	RequestID    string
	StartAt      time.Time
	PromptTokens int
}

// StartCompletion allocates a session, solves its proof-of-work
// challenge, and POSTs the completion request, returning the open SSE
// body for the caller to parse.
func StartCompletion(ctx context.Context, client *http.Client, lang, deviceID, model string, messages []entity.Message, conversationID, parentMessageID string, counter tokenizer.Counter, logger *zap.Logger) (*Stream, error) {
	session, err := AllocateSession(ctx, client, lang, deviceID, logger)
	if err != nil {
		return nil, err
	}

	proof := ""
	if session.ProofRequired {
		proof = SolveProofOfWork(session.ProofSeed, session.ProofDifficulty)
	}

	if parentMessageID == "" {
		parentMessageID = uuid.NewString()
	}

	_, offsetSec := time.Now().Zone()
	body := entity.NewCompletionRequest(model, messages, conversationID, parentMessageID, uuid.NewString(), offsetSec/60)

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.DecodeError("encoding completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conversationURL, bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.IOErrorf("building completion request: %v", err)
	}
	httpclient.Headers(req, lang, deviceID, session.Token, proof)

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.TransportError("completion call failed", 0, "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(resp.Body)
		return nil, apperrors.TransportError("completion call rejected", resp.StatusCode, string(errBody), nil)
	}

	promptTokens := 0
	for _, m := range messages {
		promptTokens += counter.Count(m.Content)
	}

	return &Stream{
		Body:         resp.Body,
		RequestID:    NewRequestID(),
		StartAt:      time.Now(),
		PromptTokens: promptTokens,
	}, nil
}
