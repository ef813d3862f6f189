package upstream

import (
	"io"
	"strings"
	"testing"

	"github.com/shenjinti/fgpt/internal/entity"
)

type heuristicCounter struct{}

func (heuristicCounter) Count(text string) int { return len(text) }

func snapshotFrame(id, conversationID string, parts []string) string {
	return `data: {"message":{"id":"` + id + `","author":{"role":"assistant"},"content":{"content_type":"text","parts":["` +
		strings.Join(parts, `","`) + `"]}},"conversation_id":"` + conversationID + `"}`
}

func TestStreamSimpleCompletion(t *testing.T) {
	body := snapshotFrame("m1", "c1", []string{"Hello"}) + "\n\n" +
		snapshotFrame("m1", "c1", []string{"Hello, world"}) + "\n\n" +
		"data: [DONE]\n\n"

	stream := NewCompletionStream(strings.NewReader(body), heuristicCounter{})

	var deltas []string
	for {
		d, err := stream.Next()
		if err == io.EOF {
			t.Fatal("unexpected EOF before Done event")
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Kind == entity.EventDone {
			break
		}
		if d.Kind == entity.EventData {
			deltas = append(deltas, d.Text)
		}
	}

	if len(deltas) != 2 || deltas[0] != "Hello" || deltas[1] != ", world" {
		t.Fatalf("unexpected deltas: %#v", deltas)
	}
	if stream.Text() != "Hello, world" {
		t.Fatalf("unexpected final text: %q", stream.Text())
	}
}

func TestStreamHeartbeatIgnored(t *testing.T) {
	body := snapshotFrame("m1", "c1", []string{"Hello"}) + "\n\n" +
		"data: 2024-01-01 00:00:00.000000\n\n" +
		snapshotFrame("m1", "c1", []string{"Hello, world"}) + "\n\n" +
		"data: [DONE]\n\n"

	stream := NewCompletionStream(strings.NewReader(body), heuristicCounter{})

	var deltas []string
	for {
		d, err := stream.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Kind == entity.EventDone {
			break
		}
		if d.Kind == entity.EventData {
			deltas = append(deltas, d.Text)
		}
	}

	if len(deltas) != 2 || deltas[0] != "Hello" || deltas[1] != ", world" {
		t.Fatalf("heartbeat must not produce a delta, got: %#v", deltas)
	}
}

func TestStreamReorderedSnapshotDiscarded(t *testing.T) {
	body := snapshotFrame("m1", "c1", []string{"Hello, world"}) + "\n\n" +
		snapshotFrame("m1", "c1", []string{"Hello"}) + "\n\n" +
		"data: [DONE]\n\n"

	stream := NewCompletionStream(strings.NewReader(body), heuristicCounter{})

	var deltas []string
	for {
		d, err := stream.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Kind == entity.EventDone {
			break
		}
		if d.Kind == entity.EventData {
			deltas = append(deltas, d.Text)
		}
	}

	if len(deltas) != 1 || deltas[0] != "Hello, world" {
		t.Fatalf("expected a single delta from the first snapshot, got: %#v", deltas)
	}
	if stream.Text() != "Hello, world" {
		t.Fatalf("reordered snapshot must not rewind textbuf, got: %q", stream.Text())
	}
}

func TestClassifyFinishReason(t *testing.T) {
	cases := []struct {
		details *entity.CompletionFinishDetails
		want    string
	}{
		{nil, ""},
		{&entity.CompletionFinishDetails{Type: "max_tokens"}, "length"},
		{&entity.CompletionFinishDetails{Type: "stop"}, "stop"},
	}
	for _, c := range cases {
		if got := deriveFinishReason(c.details); got != c.want {
			t.Errorf("deriveFinishReason(%+v) = %q, want %q", c.details, got, c.want)
		}
	}
}
