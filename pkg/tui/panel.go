package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// nodeMarkdown describes n for the side panel.
func nodeMarkdown(n *model.Node, mastery model.Mastery, showMastery bool) string {
	if n == nil {
		return "_Select a topic with tab or a click._"
	}
	var b strings.Builder
	// The full name heads the panel; a differing short label follows it.
	title := strings.TrimSpace(n.FullName)
	if title == "" {
		title = n.DisplayName()
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if label := strings.TrimSpace(n.Label); label != "" && label != title {
		fmt.Fprintf(&b, "_%s_\n\n", label)
	}
	fmt.Fprintf(&b, "**Strand:** %s  \n", n.GroupKey())
	if n.Difficulty != "" {
		fmt.Fprintf(&b, "**Difficulty:** %s  \n", n.Difficulty)
	}
	if n.GradeLevel != "" {
		fmt.Fprintf(&b, "**Grade level:** %s  \n", n.GradeLevel)
	}
	if showMastery {
		if v, ok := mastery.Score(n.ID); ok {
			fmt.Fprintf(&b, "**Mastery:** %.0f%% (%s)  \n", v*100, model.StatusFor(v, ok))
		} else {
			b.WriteString("**Mastery:** unknown  \n")
		}
	}
	fmt.Fprintf(&b, "`%s`\n", n.ID)
	if t := strings.TrimSpace(n.Title); t != "" {
		b.WriteString("\n")
		b.WriteString(t)
		b.WriteString("\n")
	}
	return b.String()
}

// renderMarkdown renders md for a panel of the given width, falling back to
// the raw text when glamour fails.
func renderMarkdown(md string, width int) string {
	if width < 10 {
		width = 10
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
