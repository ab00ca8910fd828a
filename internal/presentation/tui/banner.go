package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Jarvis banner, coloured for the terminal's profile.
func PrintBanner(w io.Writer) {
	p := termenv.EnvColorProfile()
	lines := []struct {
		text, color string
	}{
		{"      _                  _     ", "#818cf8"},
		{"     | | __ _ _ ____   _(_)___ ", "#a78bfa"},
		{"  _  | |/ _` | '__\\ \\ / / / __|", "#c084fc"},
		{" | |_| | (_| | |   \\ V /| \\__ \\", "#e879f9"},
		{"  \\___/ \\__,_|_|    \\_/ |_|___/", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Styler colours chat prefixes for the terminal's profile.
type Styler struct {
	profile termenv.Profile
}

// NewStyler detects the colour profile from the environment.
func NewStyler() Styler {
	return Styler{profile: termenv.EnvColorProfile()}
}

// Prompt styles the input prompt.
func (s Styler) Prompt(text string) string {
	return termenv.String(text).Foreground(s.profile.Color("#a78bfa")).Bold().String()
}

// Question styles a pending question from the assistant.
func (s Styler) Question(text string) string {
	return termenv.String(text).Foreground(s.profile.Color("#fbbf24")).String()
}

// Progress styles a node event.
func (s Styler) Progress(text string) string {
	return termenv.String(text).Faint().String()
}

// Error styles an error event.
func (s Styler) Error(text string) string {
	return termenv.String(text).Foreground(s.profile.Color("#f87171")).String()
}
