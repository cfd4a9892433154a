package cli

import (
	"fmt"
	"strings"

	"github.com/bastiangx/battserve/internal/utils"
	"github.com/bastiangx/battserve/pkg/cart"
	"github.com/bastiangx/battserve/pkg/match"
	"github.com/charmbracelet/lipgloss"
)

var (
	matchStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	exactStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#56949f", Dark: "#31748f"})
	fuzzyStyle = lipgloss.NewStyle().Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#ea9d34", Dark: "#f6c177"})
	dimStyle = lipgloss.NewStyle().Faint(true)
)

const nameWidth = 44

// matchSpans returns the rune ranges of name to highlight for query.
// The whole query is tried first; failing that, every query token of at
// least two runes is looked up on its own.
func matchSpans(name, query string) [][2]int {
	lowered := []rune(strings.ToLower(name))
	q := strings.TrimSpace(strings.ToLower(query))
	if q == "" {
		return nil
	}

	if i := indexRunes(lowered, []rune(q)); i >= 0 {
		return [][2]int{{i, i + len([]rune(q))}}
	}

	var spans [][2]int
	for _, token := range strings.Fields(q) {
		tr := []rune(token)
		if len(tr) < 2 {
			continue
		}
		if i := indexRunes(lowered, tr); i >= 0 {
			spans = append(spans, [2]int{i, i + len(tr)})
		}
	}
	return mergeSpans(spans)
}

// mergeSpans sorts spans by start and joins overlapping ones
func mergeSpans(spans [][2]int) [][2]int {
	if len(spans) < 2 {
		return spans
	}
	for i := 1; i < len(spans); i++ {
		for j := i; j > 0 && spans[j][0] < spans[j-1][0]; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
		}
	}
	out := spans[:1]
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s[0] <= last[1] {
			last[1] = max(last[1], s[1])
			continue
		}
		out = append(out, s)
	}
	return out
}

func indexRunes(haystack, needle []rune) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		found := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				found = false
				break
			}
		}
		if found {
			return i
		}
	}
	return -1
}

// Highlight renders name with the parts matching query emphasized
func Highlight(name, query string) string {
	spans := matchSpans(name, query)
	if len(spans) == 0 {
		return name
	}

	runes := []rune(name)
	var b strings.Builder
	pos := 0
	for _, s := range spans {
		b.WriteString(string(runes[pos:s[0]]))
		b.WriteString(matchStyle.Render(string(runes[s[0]:s[1]])))
		pos = s[1]
	}
	b.WriteString(string(runes[pos:]))
	return b.String()
}

// formatResult renders one ranked line
func formatResult(rank int, r match.Result, query string, showScores bool) string {
	name := Highlight(utils.Truncate(r.Record.Name, nameWidth), query)
	pad := max(0, nameWidth-lipgloss.Width(name))
	line := fmt.Sprintf("%2d. %s%s  %s", rank, name, strings.Repeat(" ", pad), idStyle.Render(r.Record.ID))
	if !showScores {
		return line
	}

	origin := exactStyle.Render(r.Origin.String())
	if r.Origin == match.OriginFuzzy {
		origin = fuzzyStyle.Render(r.Origin.String())
	}
	return fmt.Sprintf("%s  %s %s", line, origin, dimStyle.Render(fmt.Sprintf("%.4f", r.Score)))
}

// formatCart renders the selection, one item per line
func formatCart(items []cart.Item) []string {
	if len(items) == 0 {
		return []string{dimStyle.Render("cart is empty")}
	}
	lines := make([]string, 0, len(items)+1)
	total := 0
	for i, it := range items {
		lines = append(lines, fmt.Sprintf("%2d. %-14s x%-3d %s", i+1, idStyle.Render(it.ID), it.Qty, it.Name))
		total += it.Qty
	}
	lines = append(lines, dimStyle.Render(fmt.Sprintf("%d items, %s pieces", len(items), utils.FormatWithCommas(total))))
	return lines
}
