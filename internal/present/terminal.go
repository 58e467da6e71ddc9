package present

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/microcosm-cc/bluemonday"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	cueStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	promoStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	nameStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	resultStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Terminal is a View that narrates the widget to a writer.
type Terminal struct {
	w     io.Writer
	plain *bluemonday.Policy
	label string
}

// NewTerminal creates a terminal view writing to w
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{
		w:     w,
		plain: bluemonday.StrictPolicy(),
	}
}

func (t *Terminal) println(s string) {
	fmt.Fprintln(t.w, s)
}

func (t *Terminal) SetTitle(title string) {
	t.println(titleStyle.Render(title))
}

func (t *Terminal) SetControl(enabled bool, label string) {
	if enabled && label != t.label {
		t.println(cueStyle.Render("[ " + label + " ]"))
	}
	t.label = label
}

func (t *Terminal) SetShaking(on bool) {
	if on {
		t.println(cueStyle.Render("ガラガラ…"))
	}
}

func (t *Terminal) SetLoading(on bool) {
	if on {
		t.println(cueStyle.Render("loading…"))
	}
}

func (t *Terminal) ShowPromotion(p Promotion) {
	if p.Fake {
		t.println(promoStyle.Render("!!"))
		return
	}
	t.println(promoStyle.Render(fmt.Sprintf("★ %s → %s ★", p.FromGrade, p.ToGrade)))
}

func (t *Terminal) ClearResult() {}

func (t *Terminal) ShowResult(r Result) {
	var b strings.Builder
	b.WriteString(nameStyle.Render(r.Name))
	if r.Grade != "" {
		b.WriteString(" (" + r.Grade + ")")
	}
	b.WriteString("\n")
	b.WriteString(describeImage(r.Image))
	if desc := strings.TrimSpace(html.UnescapeString(t.plain.Sanitize(r.Description))); desc != "" {
		b.WriteString("\n\n" + desc)
	}
	t.println(resultStyle.Render(b.String()))
}

func (t *Terminal) ShowError(msg string) {
	t.println(errorStyle.Render("error: " + msg))
}

// describeImage summarizes a data URI without dumping its payload
func describeImage(uri string) string {
	meta, data, ok := strings.Cut(uri, ",")
	if !ok {
		return "image: (none)"
	}
	mime := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
	return fmt.Sprintf("image: %s, %d bytes encoded", mime, len(data))
}
