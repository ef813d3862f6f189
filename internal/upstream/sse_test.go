package upstream

import (
	"io"
	"strings"
	"testing"

	"github.com/shenjinti/fgpt/internal/entity"
)

func TestFrameReaderFlushesTrailingPartialFrame(t *testing.T) {
	// No trailing "\n\n" after the final frame — the reader must still
	// flush it once the stream ends.
	fr := newFrameReader(strings.NewReader("data: [DONE]"))

	payload, err := fr.next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload != "[DONE]" {
		t.Fatalf("expected [DONE], got %q", payload)
	}

	if _, err := fr.next(); err != io.EOF {
		t.Fatalf("expected io.EOF after the trailing frame, got %v", err)
	}
}

func TestClassifyTextFallback(t *testing.T) {
	event := classify("not valid json")
	if event.Kind != entity.EventText || event.Text != "not valid json" {
		t.Fatalf("expected an EventText fallback, got %#v", event)
	}
}
