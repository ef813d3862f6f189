// Package terminal implements the interactive front-end: a one-shot
// "ask" mode and a readline-backed REPL, both driving the same chat
// driver.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/shenjinti/fgpt/internal/config"
	"github.com/shenjinti/fgpt/internal/driver"
	"github.com/shenjinti/fgpt/internal/entity"
	"github.com/shenjinti/fgpt/pkg/safego"
)

const codePreamble = "You are a coding assistant. Answer with complete, runnable code and concise explanations."

// Run dispatches to one-shot or REPL mode based on state.REPL.
func Run(state *config.AppState, d *driver.Driver, logger *zap.Logger) error {
	if state.REPL {
		return runREPL(state, d, logger)
	}
	return runOnce(state, d, logger)
}

func runOnce(state *config.AppState, d *driver.Driver, logger *zap.Logger) error {
	question, err := readQuestion(state)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	installSignalCancel(ctx, cancel, logger)

	messages := buildMessages(state, question)

	start := time.Now()
	result, err := d.Run(ctx, messages, "", "", func(delta string) {
		fmt.Fprint(os.Stdout, delta)
	})
	fmt.Fprintln(os.Stdout)
	if err != nil {
		logger.Error("completion failed", zap.Error(err))
		return err
	}

	if state.DumpStats {
		fmt.Fprintf(os.Stderr, "steps=1 prompt_tokens=%d completion_tokens=%d elapsed=%s model=%s\n",
			result.PromptTokens, result.CompletionTokens, time.Since(start).Round(time.Millisecond), state.Model)
	}
	return nil
}

func runREPL(state *config.AppState, d *driver.Driver, logger *zap.Logger) error {
	fmt.Fprintln(os.Stdout, RenderBanner(state.Model, state.Lang, state.DeviceID))

	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	var conversationID, lastMessageID string

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/exit" {
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		installSignalCancel(ctx, cancel, logger)

		messages := buildMessages(state, line)
		result, err := d.Run(ctx, messages, conversationID, lastMessageID, func(delta string) {
			fmt.Fprint(os.Stdout, delta)
		})
		fmt.Fprintln(os.Stdout)
		cancel()

		if err != nil {
			logger.Error("completion failed", zap.Error(err))
			continue
		}

		conversationID = result.ConversationID
		lastMessageID = result.LastMessageID
	}
}

func buildMessages(state *config.AppState, question string) []entity.Message {
	var messages []entity.Message
	if state.Code {
		messages = append(messages, entity.NewMessage("system", codePreamble))
	}
	messages = append(messages, entity.NewMessage("user", question))
	return messages
}

func readQuestion(state *config.AppState) (string, error) {
	if state.Question != "" {
		return state.Question, nil
	}
	if state.InputFile != "" {
		raw, err := os.ReadFile(state.InputFile)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	var sb strings.Builder
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), scanner.Err()
}

// installSignalCancel cancels cancel on the first SIGINT/SIGTERM, so a
// Ctrl-C during an in-flight stream aborts it without losing whatever
// partial reply was already printed.
func installSignalCancel(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	safego.Go(logger, "signal-cancel", func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	})
}
