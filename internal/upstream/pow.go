// Package upstream implements the session-and-proof handshake and the
// completion protocol against the anonymous conversational endpoint.
package upstream

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/shenjinti/fgpt/internal/httpclient"
)

const (
	resultPrefix = "gAAAAAB"
	magicConst   = 4294705152
	maxAttempts  = 1_000_000
)

var firstKeyA = [...]int{8, 12, 16, 24}
var firstKeyB = [...]int{3000, 4000, 6000}

// SolveProofOfWork grinds a proof-of-work token for (seed, difficulty).
// It never fails: it loops until a valid nonce is found, falling back
// to the best-effort result after maxAttempts rather than erroring, per
// the protocol's "proof-of-work attempts never fail" policy.
func SolveProofOfWork(seed, difficulty string) string {
	diffLen := len(difficulty) / 2
	dt := formatProofDatetime(time.Now())

	for attempt := 0; attempt < maxAttempts; attempt++ {
		firstKey := firstKeyA[rand.Intn(len(firstKeyA))] + firstKeyB[rand.Intn(len(firstKeyB))]
		payloadArr := []interface{}{
			firstKey,
			dt,
			magicConst,
			rand.Intn(100000),
			httpclient.UserAgent,
		}

		raw, err := json.Marshal(payloadArr)
		if err != nil {
			continue
		}
		payload := base64.StdEncoding.EncodeToString(raw)

		h := sha3.New512()
		h.Write([]byte(seed))
		h.Write([]byte(payload))
		digest := h.Sum(nil)

		if hexPrefixLE(digest, diffLen, difficulty) {
			return resultPrefix + payload
		}
	}

	// Fallback: return a payload built from fixed values (the first
	// first-key choices and a zero nonce) that has not been checked
	// against the inequality, so the caller always gets a token shaped
	// like a real proof rather than an error type the protocol has no
	// slot for.
	raw, _ := json.Marshal([]interface{}{firstKeyA[0] + firstKeyB[0], dt, magicConst, 0, httpclient.UserAgent})
	return resultPrefix + base64.StdEncoding.EncodeToString(raw)
}

// hexPrefixLE reports whether the hex encoding of digest's first
// diffLen bytes is lexicographically <= difficulty.
func hexPrefixLE(digest []byte, diffLen int, difficulty string) bool {
	const hexDigits = "0123456789abcdef"
	if diffLen > len(digest) {
		diffLen = len(digest)
	}
	prefix := make([]byte, diffLen*2)
	for i := 0; i < diffLen; i++ {
		prefix[i*2] = hexDigits[digest[i]>>4]
		prefix[i*2+1] = hexDigits[digest[i]&0x0f]
	}
	return string(prefix) <= difficulty
}

// formatProofDatetime renders "%a %b %-d %Y %T GMT%z (%Z)" in English,
// with a non-zero-padded day-of-month.
func formatProofDatetime(t time.Time) string {
	zoneName, offsetSec := t.Zone()
	sign := "+"
	if offsetSec < 0 {
		sign = "-"
		offsetSec = -offsetSec
	}
	offsetH := offsetSec / 3600
	offsetM := (offsetSec % 3600) / 60

	return fmt.Sprintf("%s %d %s GMT%s%02d%02d (%s)",
		t.Format("Mon Jan"), t.Day(), t.Format("2006 15:04:05"), sign, offsetH, offsetM, zoneName)
}
