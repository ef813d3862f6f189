package terminal

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var bannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#74B9FF"))

var dimStyle = lipgloss.NewStyle().Faint(true)

// RenderBanner renders a one-line welcome banner showing model/lang/device id.
func RenderBanner(model, lang, deviceID string) string {
	title := bannerStyle.Render("fgpt")
	details := dimStyle.Render(fmt.Sprintf("model=%s lang=%s device=%s", model, lang, shortID(deviceID)))
	return title + "  " + details
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
