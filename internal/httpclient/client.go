// Package httpclient builds the single HTTP client shared by every
// upstream call and stamps each request with the browser-mimicking
// header set the gating endpoints expect.
package httpclient

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UserAgent is the exact UA string every outbound request carries,
// and the value embedded in the proof-of-work payload.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0"

const refererOrigin = "https://chat.openai.com"

// New builds a process-wide *http.Client, optionally routed through
// proxyURL. A malformed proxy URL is logged as a warning; the client
// proceeds without a proxy rather than failing startup.
func New(proxyURL string, logger *zap.Logger) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			logger.Warn("ignoring malformed proxy URL", zap.String("proxy", proxyURL), zap.Error(err))
		} else {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   0, // streaming responses must not be bound by a fixed client timeout
	}
}

// Headers stamps req with the exact header set every outbound request
// must carry, plus optional sentinel tokens on the completion call.
func Headers(req *http.Request, lang, deviceID, chatRequirementsToken, proofToken string) {
	short := lang
	if idx := strings.IndexByte(lang, '-'); idx >= 0 {
		short = lang[:idx]
	}

	req.Header.Set("oai-language", lang)
	req.Header.Set("oai-device-id", deviceID)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", lang+","+short+";q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Referer", refererOrigin)
	req.Header.Set("Origin", refererOrigin)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("sec-ch-ua", `"Not A(Brand";v="99", "Microsoft Edge";v="121", "Chromium";v="121"`)
	req.Header.Set("sec-ch-ua-mobile", "?0")
	req.Header.Set("sec-ch-ua-platform", `"macOS"`)
	req.Header.Set("sec-fetch-dest", "empty")
	req.Header.Set("sec-fetch-mode", "cors")
	req.Header.Set("sec-fetch-site", "same-origin")
	req.Header.Set("User-Agent", UserAgent)

	if chatRequirementsToken != "" {
		req.Header.Set("openai-sentinel-chat-requirements-token", chatRequirementsToken)
	}
	if proofToken != "" {
		req.Header.Set("openai-sentinel-proof-token", proofToken)
	}
}
