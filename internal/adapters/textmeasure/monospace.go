package textmeasure

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"review_feed/internal/domain"
)

// Monospace measures text as if drawn on a fixed cell grid: every column is
// CellWidth wide and every line is the style's line height tall. It is the
// measurer used by the HTTP boundary and the CLI, where no real font
// rasterizer is available.
type Monospace struct {
	CellWidth   float64
	LineHeights map[domain.TextStyle]float64
	// Fallback line height for styles missing from LineHeights.
	DefaultLineHeight float64
}

func New() *Monospace {
	return &Monospace{
		CellWidth: 8,
		LineHeights: map[domain.TextStyle]float64{
			domain.StyleUsername:    20,
			domain.StyleText:        18,
			domain.StyleCreated:     16,
			domain.StyleShowMore:    18,
			domain.StyleReviewCount: 18,
		},
		DefaultLineHeight: 18,
	}
}

func (m *Monospace) LineHeight(style domain.TextStyle) float64 {
	if h, ok := m.LineHeights[style]; ok {
		return h
	}
	return m.DefaultLineHeight
}

func (m *Monospace) Measure(t domain.StyledText, maxWidth float64) domain.Size {
	if t.IsEmpty() {
		return domain.Size{}
	}
	lines := m.Lines(t.Text, maxWidth)
	widest := 0
	for _, l := range lines {
		widest = max(widest, runewidth.StringWidth(l))
	}
	return domain.Size{
		W: math.Min(float64(widest)*m.CellWidth, math.Max(maxWidth, m.CellWidth)),
		H: float64(len(lines)) * m.LineHeight(t.Style),
	}
}

// Lines word-wraps text to maxWidth. Words longer than a line are broken.
func (m *Monospace) Lines(text string, maxWidth float64) []string {
	cols := int(maxWidth / m.CellWidth)
	if cols < 1 {
		cols = 1
	}
	wrapped := wrap.String(wordwrap.String(text, cols), cols)
	lines := strings.Split(wrapped, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return lines
}

var _ domain.TextMeasurer = (*Monospace)(nil)
