package upstream

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/sha3"
)

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parsing time %q: %v", s, err)
	}
	return parsed
}

func TestSolveProofOfWorkSatisfiesInequality(t *testing.T) {
	seed := "abc"
	difficulty := "0fff"

	token := SolveProofOfWork(seed, difficulty)
	if !strings.HasPrefix(token, resultPrefix) {
		t.Fatalf("token missing %q prefix: %q", resultPrefix, token)
	}

	payload := strings.TrimPrefix(token, resultPrefix)
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("payload is not valid base64: %v", err)
	}

	var arr []interface{}
	if err := json.Unmarshal(raw, &arr); err != nil {
		t.Fatalf("payload is not a JSON array: %v", err)
	}
	if len(arr) != 5 {
		t.Fatalf("expected a 5-element payload, got %d", len(arr))
	}

	h := sha3.New512()
	h.Write([]byte(seed))
	h.Write([]byte(payload))
	digest := h.Sum(nil)

	diffLen := len(difficulty) / 2
	if !hexPrefixLE(digest, diffLen, difficulty) {
		t.Fatalf("produced token does not satisfy the difficulty inequality")
	}
}

func TestFormatProofDatetimeNonZeroPaddedDay(t *testing.T) {
	dt := formatProofDatetime(mustParseTime(t, "2024-03-05T09:08:07Z"))
	if strings.Contains(dt, " 05 ") {
		t.Fatalf("day-of-month must not be zero-padded: %q", dt)
	}
	if !strings.Contains(dt, " 5 ") {
		t.Fatalf("expected non-padded day 5 in %q", dt)
	}
}
