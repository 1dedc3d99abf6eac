package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// ProbabilityColor bands a 0-100 probability: green from 70, yellow from 40,
// red below.
func ProbabilityColor(p float64) tcell.Color {
	switch {
	case p >= 70:
		return tcell.ColorGreen
	case p >= 40:
		return tcell.ColorYellow
	default:
		return tcell.ColorRed
	}
}

// SourceColor is the badge colour for a venue.
func SourceColor(s domain.Source) tcell.Color {
	if s == domain.SourcePolymarket {
		return tcell.ColorPurple
	}
	return tcell.ColorBlue
}

// SourceLabel is the display name of a venue.
func SourceLabel(s domain.Source) string {
	switch s {
	case domain.SourcePolymarket:
		return "Polymarket"
	case domain.SourceManifold:
		return "Manifold"
	default:
		return string(s)
	}
}

// FormatVolume renders a dollar amount as $1.23M, $15.0K or $500.
func FormatVolume(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("$%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("$%.1fK", v/1_000)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

// FormatProbability renders a probability with one decimal, e.g. "65.0%".
func FormatProbability(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// FormatDate renders epoch milliseconds as "January 2, 2006" in UTC. Nil or
// zero timestamps render as "".
func FormatDate(ms *int64) string {
	if ms == nil || *ms == 0 {
		return ""
	}
	return time.UnixMilli(*ms).UTC().Format("January 2, 2006")
}

// Truncate shortens s to at most n runes, ending with "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// colorTag wraps text in a tview colour tag.
func colorTag(c tcell.Color, text string) string {
	return fmt.Sprintf("[#%06x]%s[-]", c.Hex(), tview.Escape(text))
}

// DetailText renders the full market detail for the detail pane.
func DetailText(m domain.Market) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[::b]%s[::-]\n\n", tview.Escape(m.Question))
	if m.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", tview.Escape(m.Description))
	}

	fmt.Fprintf(&b, "Probability  %s\n", colorTag(ProbabilityColor(m.Probability), FormatProbability(m.Probability)))
	fmt.Fprintf(&b, "Volume       %s\n", FormatVolume(m.Volume))
	if m.Liquidity != nil && *m.Liquidity != 0 {
		fmt.Fprintf(&b, "Liquidity    %s\n", FormatVolume(*m.Liquidity))
	}
	fmt.Fprintf(&b, "Source       %s\n", colorTag(SourceColor(m.Source), SourceLabel(m.Source)))

	if len(m.Outcomes) > 0 {
		fmt.Fprintf(&b, "Outcomes     %s\n", tview.Escape(strings.Join(m.Outcomes, ", ")))
	}
	if m.Category != "" {
		fmt.Fprintf(&b, "Category     %s\n", tview.Escape(m.Category))
	}

	b.WriteString("\n")
	if created := FormatDate(m.CreatedTime); created != "" {
		fmt.Fprintf(&b, "Created      %s\n", created)
	}
	if closes := FormatDate(m.CloseTime); closes != "" {
		fmt.Fprintf(&b, "Closes       %s\n", closes)
	}
	if m.Resolution != "" {
		fmt.Fprintf(&b, "Resolution   %s\n", tview.Escape(m.Resolution))
	}
	if m.URL != "" {
		fmt.Fprintf(&b, "\nView on %s: %s\n", SourceLabel(m.Source), m.URL)
	}
	return b.String()
}
