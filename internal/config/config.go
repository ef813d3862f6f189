// Package config resolves CLI flags and environment variables into
// one immutable AppState, shared by reference for the life of the
// process.
package config

import (
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// AppState is the fully resolved, immutable configuration every
// component reads from. It is built once at startup and never mutated.
type AppState struct {
	Question    string
	Model       string
	Lang        string
	Proxy       string
	LogFile     string
	LogLevel    string
	Debug       bool
	Code        bool
	InputFile   string
	REPL        bool
	DumpStats   bool
	ServeAddr   string
	Prefix      string
	DisableCORS bool

	DeviceID string
}

// Flags are the raw values bound from cobra flags, before defaulting
// and environment overlay.
type Flags struct {
	Question    string
	Model       string
	Lang        string
	Proxy       string
	LogFile     string
	LogLevel    string
	Debug       bool
	Code        bool
	InputFile   string
	REPL        bool
	DumpStats   bool
	ServeAddr   string
	Prefix      string
	DisableCORS bool
}

const defaultModel = "text-davinci-002-render-sha"
const defaultLang = "en-US"
const defaultPrefix = "/v1"

// Resolve builds an AppState from flags, overlaid with FGPT_* environment
// variables (lower precedence than an explicitly-set flag) and the LANG
// environment variable (lowest precedence, language only). device_id is
// always a fresh UUID, never read from config.
func Resolve(flags Flags) *AppState {
	v := viper.New()
	v.SetEnvPrefix("FGPT")
	v.AutomaticEnv()

	v.SetDefault("model", defaultModel)
	v.SetDefault("lang", defaultLanguage())
	v.SetDefault("prefix", defaultPrefix)

	state := &AppState{
		Question:    flags.Question,
		Model:       firstNonEmpty(flags.Model, v.GetString("model")),
		Lang:        firstNonEmpty(flags.Lang, v.GetString("lang")),
		Proxy:       firstNonEmpty(flags.Proxy, v.GetString("proxy")),
		LogFile:     firstNonEmpty(flags.LogFile, v.GetString("log_file")),
		LogLevel:    firstNonEmpty(flags.LogLevel, v.GetString("log_level")),
		Debug:       flags.Debug,
		Code:        flags.Code,
		InputFile:   flags.InputFile,
		REPL:        flags.REPL,
		DumpStats:   flags.DumpStats,
		ServeAddr:   flags.ServeAddr,
		Prefix:      firstNonEmpty(flags.Prefix, v.GetString("prefix")),
		DisableCORS: flags.DisableCORS,
		DeviceID:    uuid.NewString(),
	}

	if state.LogLevel == "" {
		state.LogLevel = "info"
	}
	if state.Debug {
		state.LogLevel = "debug"
	}

	return state
}

// defaultLanguage reads LANG, stripping the encoding suffix after '.'.
func defaultLanguage() string {
	lang := os.Getenv("LANG")
	if lang == "" {
		return defaultLang
	}
	if idx := strings.IndexByte(lang, '.'); idx >= 0 {
		lang = lang[:idx]
	}
	lang = strings.ReplaceAll(lang, "_", "-")
	if lang == "" || lang == "C" || lang == "POSIX" {
		return defaultLang
	}
	return lang
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
