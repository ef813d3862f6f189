// Command fgpt is the anonymous ChatGPT client: a one-shot/REPL
// terminal front-end and an OpenAI-compatible HTTP façade over the
// same session-and-proof handshake and completion protocol.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shenjinti/fgpt/internal/config"
	"github.com/shenjinti/fgpt/internal/driver"
	"github.com/shenjinti/fgpt/internal/httpapi"
	"github.com/shenjinti/fgpt/internal/httpclient"
	"github.com/shenjinti/fgpt/internal/logger"
	"github.com/shenjinti/fgpt/internal/terminal"
	"github.com/shenjinti/fgpt/internal/tokenizer"
)

func main() {
	flags := config.Flags{}

	root := &cobra.Command{
		Use:           "fgpt [question]",
		Short:         "An anonymous ChatGPT client with an OpenAI-compatible façade",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				flags.Question = args[0]
			}
			return run(flags)
		},
	}

	root.Flags().StringVarP(&flags.Model, "model", "m", "", "model slug")
	root.Flags().StringVar(&flags.Lang, "lang", "", "language tag, e.g. en-US")
	root.Flags().StringVar(&flags.Proxy, "proxy", "", "upstream proxy URL")
	root.Flags().StringVar(&flags.LogFile, "log-file", "", "log output path (default stderr)")
	root.Flags().StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	root.Flags().BoolVar(&flags.Debug, "debug", false, "enable debug logging")
	root.Flags().BoolVarP(&flags.Code, "code", "c", false, "prepend a coding-assistant system preamble")
	root.Flags().StringVarP(&flags.InputFile, "file", "f", "", "read the question from a file")
	root.Flags().BoolVar(&flags.REPL, "repl", false, "run an interactive REPL")
	root.Flags().BoolVar(&flags.DumpStats, "stats", false, "print token/timing stats to stderr")
	root.Flags().StringVarP(&flags.ServeAddr, "serve", "s", "", "run the OpenAI-compatible façade on this address")
	root.Flags().StringVar(&flags.Prefix, "prefix", "", "façade route prefix (default /v1)")
	root.Flags().BoolVar(&flags.DisableCORS, "disable-cors", false, "disable the façade's CORS middleware")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(flags config.Flags) error {
	state := config.Resolve(flags)

	logFormat := "console"
	outputPath := "stderr"
	if state.ServeAddr != "" {
		logFormat = "json"
	}
	if state.LogFile != "" {
		outputPath = state.LogFile
	}

	zapLogger, err := logger.New(logger.Config{Level: state.LogLevel, Format: logFormat, OutputPath: outputPath})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer zapLogger.Sync()

	client := httpclient.New(state.Proxy, zapLogger)
	counter := tokenizer.New(zapLogger)

	model := state.Model
	if model == "" {
		model = "text-davinci-002-render-sha"
	}

	chatDriver := &driver.Driver{
		Client:   client,
		Lang:     state.Lang,
		DeviceID: state.DeviceID,
		Model:    model,
		Counter:  counter,
		Logger:   zapLogger,
	}

	if state.ServeAddr != "" {
		return serve(state, chatDriver, zapLogger)
	}
	return terminal.Run(state, chatDriver, zapLogger)
}

func serve(state *config.AppState, d *driver.Driver, zapLogger *zap.Logger) error {
	prefix := state.Prefix
	if prefix == "" {
		prefix = "/v1"
	}

	server := httpapi.NewServer(state.ServeAddr, prefix, state.DisableCORS, d, zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("façade listening", zap.String("addr", state.ServeAddr), zap.String("prefix", prefix))

	err := server.Start(ctx)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
