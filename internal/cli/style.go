package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// styles renders headings and status words. Output that is not a terminal
// stays plain so it can be piped and diffed.
type styles struct {
	tty   bool
	title lipgloss.Style
	label lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
}

func newStyles(out io.Writer) styles {
	brand := lipgloss.AdaptiveColor{Light: "26", Dark: "81"}
	subtle := lipgloss.AdaptiveColor{Light: "245", Dark: "244"}
	return styles{
		tty:   isTerminal(out),
		title: lipgloss.NewStyle().Bold(true).Foreground(brand),
		label: lipgloss.NewStyle().Bold(true),
		ok:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		dim:   lipgloss.NewStyle().Foreground(subtle),
	}
}

func (s styles) render(st lipgloss.Style, text string) string {
	if !s.tty {
		return text
	}
	return st.Render(text)
}

func (s styles) rule(ch string, n int) string {
	return s.render(s.dim, strings.Repeat(ch, n))
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
