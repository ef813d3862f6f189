package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/shenjinti/fgpt/internal/entity"
	"github.com/shenjinti/fgpt/internal/httpclient"
	apperrors "github.com/shenjinti/fgpt/pkg/errors"
)

const requirementsURL = "https://chat.openai.com/backend-anon/sentinel/chat-requirements"

type chatRequirementsResponse struct {
	Token       string `json:"token"`
	ProofOfWork struct {
		Required   bool   `json:"required"`
		Seed       string `json:"seed"`
		Difficulty string `json:"difficulty"`
	} `json:"proofofwork"`
}

var blockedHintOnce sync.Once

// AllocateSession POSTs the requirements endpoint and binds the
// resulting token/challenge to deviceID. No session is ever cached:
// callers allocate one per completion.
func AllocateSession(ctx context.Context, client *http.Client, lang, deviceID string, logger *zap.Logger) (*entity.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requirementsURL, nil)
	if err != nil {
		return nil, apperrors.IOErrorf("building requirements request: %v", err)
	}
	httpclient.Headers(req, lang, deviceID, "", "")

	resp, err := client.Do(req)
	if err != nil {
		blockedHintOnce.Do(func() {
			logger.Warn("requirements call failed; your country may not be supported yet — consider using a U.S. VPN")
		})
		return nil, apperrors.TransportError("requirements call failed", 0, "", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		blockedHintOnce.Do(func() {
			logger.Warn("requirements call rejected; your country may not be supported yet — consider using a U.S. VPN")
		})
		return nil, apperrors.TransportError("requirements call rejected", resp.StatusCode, string(body), nil)
	}

	var parsed chatRequirementsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.DecodeError("decoding requirements response", err)
	}
	if parsed.Token == "" {
		return nil, apperrors.DecodeError("requirements response missing token", nil)
	}

	return &entity.Session{
		Token:           parsed.Token,
		ProofRequired:   parsed.ProofOfWork.Required,
		ProofSeed:       parsed.ProofOfWork.Seed,
		ProofDifficulty: parsed.ProofOfWork.Difficulty,
		DeviceID:        deviceID,
	}, nil
}
