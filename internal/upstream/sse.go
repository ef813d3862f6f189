package upstream

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"sync"
	"time"

	apperrors "github.com/shenjinti/fgpt/pkg/errors"
	"github.com/shenjinti/fgpt/internal/entity"
)

var heartbeatPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{6}$`)

// idleTimeout bounds how long a single read may block before the
// frame reader gives up on a stalled upstream connection.
const idleTimeout = 60 * time.Second

// frameReader turns a byte stream into \n\n-delimited SSE frames,
// stripping the "data: " prefix from each contained line.
type frameReader struct {
	src io.Reader
	buf bytes.Buffer
	eof bool
}

func newFrameReader(src io.Reader) *frameReader {
	return &frameReader{src: &timedReader{r: src, timeout: idleTimeout}}
}

// next returns the payload of the next frame, or io.EOF once the
// stream is exhausted and no trailing partial frame remains.
func (f *frameReader) next() (string, error) {
	for {
		if idx := bytes.Index(f.buf.Bytes(), []byte("\n\n")); idx >= 0 {
			raw := f.buf.Next(idx + 2)
			raw = raw[:len(raw)-2]
			return stripDataPrefix(raw), nil
		}
		if f.eof {
			if f.buf.Len() == 0 {
				return "", io.EOF
			}
			raw := f.buf.Bytes()
			f.buf.Reset()
			return stripDataPrefix(raw), nil
		}

		chunk := make([]byte, 4096)
		n, err := f.src.Read(chunk)
		if n > 0 {
			f.buf.Write(chunk[:n])
		}
		if err != nil {
			if err == io.EOF {
				f.eof = true
				continue
			}
			return "", apperrors.TransportError("reading completion stream", 0, "", err)
		}
	}
}

func stripDataPrefix(raw []byte) string {
	var out bytes.Buffer
	for _, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimPrefix(line, []byte("data: "))
		out.Write(line)
	}
	return out.String()
}

// classify turns one frame payload into a CompletionEvent.
func classify(payload string) entity.CompletionEvent {
	if payload == "[DONE]" {
		return entity.CompletionEvent{Kind: entity.EventDone}
	}
	if heartbeatPattern.MatchString(payload) {
		return entity.CompletionEvent{Kind: entity.EventHeartbeat}
	}

	var resp entity.CompletionResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return entity.CompletionEvent{Kind: entity.EventText, Text: payload}
	}
	if resp.Error != "" {
		return entity.CompletionEvent{Kind: entity.EventError, Reason: resp.Error}
	}
	return entity.CompletionEvent{Kind: entity.EventData, Response: &resp}
}

var errIdleTimeout = apperrors.TransportError("completion stream idle timeout", 0, "", nil)

type readResult struct {
	chunk []byte
	err   error
}

// timedReader applies a per-Read deadline so a stalled upstream
// connection doesn't block the stream forever. A single background
// goroutine owns r for the lifetime of the reader, so a timed-out Read
// never leaves a second goroutine racing a later one over the same
// underlying connection — the caller just stops listening on ch until
// the next Read.
type timedReader struct {
	r       io.Reader
	timeout time.Duration

	once    sync.Once
	ch      chan readResult
	pending []byte
	pendErr error
}

func (t *timedReader) start() {
	t.ch = make(chan readResult)
	go func() {
		for {
			buf := make([]byte, 4096)
			n, err := t.r.Read(buf)
			t.ch <- readResult{chunk: buf[:n], err: err}
			if err != nil {
				close(t.ch)
				return
			}
		}
	}()
}

func (t *timedReader) Read(p []byte) (int, error) {
	t.once.Do(t.start)

	if len(t.pending) > 0 {
		n := copy(p, t.pending)
		t.pending = t.pending[n:]
		return n, nil
	}
	if t.pendErr != nil {
		err := t.pendErr
		t.pendErr = nil
		return 0, err
	}

	select {
	case res, ok := <-t.ch:
		if !ok {
			return 0, io.EOF
		}
		n := copy(p, res.chunk)
		if n < len(res.chunk) {
			t.pending = res.chunk[n:]
		}
		if res.err != nil {
			if n == 0 {
				return 0, res.err
			}
			t.pendErr = res.err
		}
		return n, nil
	case <-time.After(t.timeout):
		return 0, errIdleTimeout
	}
}
