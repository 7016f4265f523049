// Package chart provides the two time-series widgets of the dashboard: a
// filled line chart and a bar chart. A Widget owns its labels and datasets;
// SetData replaces them wholesale and Render draws the current state as SVG.
package chart

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects how a widget draws its datasets.
type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
)

// Theme is the colour scheme shared by every widget on the page.
type Theme struct {
	Background  string // plot background
	LegendColor string // legend text
	TickColor   string // axis tick labels
	GridColor   string // grid lines
	FontSize    int
}

// DarkTheme returns the dashboard's dark look-and-feel.
func DarkTheme() Theme {
	return Theme{
		Background:  "transparent",
		LegendColor: "#e4e4e7",
		TickColor:   "#a1a1aa",
		GridColor:   "#3f3f46",
		FontSize:    11,
	}
}

// Config holds rendering geometry.
type Config struct {
	Width        int // SVG width in pixels (default: 800)
	Height       int // SVG height in pixels (default: 400, i.e. aspect ratio 2)
	MarginTop    int
	MarginRight  int
	MarginBottom int
	MarginLeft   int
}

// DefaultConfig returns a 2:1 canvas with room for axis labels.
func DefaultConfig() Config {
	return Config{
		Width:        800,
		Height:       400,
		MarginTop:    36,
		MarginRight:  24,
		MarginBottom: 48,
		MarginLeft:   80,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c Config) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// Dataset is one named series of values.
type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor,omitempty"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	Fill            bool      `json:"fill,omitempty"`
	Tension         float64   `json:"tension,omitempty"`      // 0 draws straight segments
	BorderRadius    float64   `json:"borderRadius,omitempty"` // bar corner radius
}

// Data is a widget's full state, as exposed to JSON clients.
type Data struct {
	Type     Kind      `json:"type"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Widget is a single chart instance. It is not safe for concurrent use; the
// owner serialises access.
type Widget struct {
	kind       Kind
	cfg        Config
	theme      Theme
	tickFormat func(float64) string
	labels     []string
	datasets   []Dataset
}

// Option customises a Widget.
type Option func(*Widget)

// WithConfig overrides the rendering geometry.
func WithConfig(cfg Config) Option {
	return func(w *Widget) { w.cfg = cfg }
}

// WithTickFormat sets the Y-axis tick label formatter.
func WithTickFormat(f func(float64) string) Option {
	return func(w *Widget) { w.tickFormat = f }
}

// New creates a widget whose datasets start empty. The templates fix each
// dataset's label and styling; only the values change afterwards.
func New(kind Kind, theme Theme, templates []Dataset, opts ...Option) *Widget {
	w := &Widget{
		kind:       kind,
		cfg:        DefaultConfig(),
		theme:      theme,
		tickFormat: func(v float64) string { return fmt.Sprintf("%.0f", v) },
		datasets:   make([]Dataset, len(templates)),
	}
	for i, t := range templates {
		t.Data = nil
		w.datasets[i] = t
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Kind returns the widget type.
func (w *Widget) Kind() Kind { return w.kind }

// SetData replaces the labels and the values of each dataset, in order.
// Extra value slices are ignored; missing ones leave a dataset empty.
func (w *Widget) SetData(labels []string, values ...[]float64) {
	w.labels = append([]string(nil), labels...)
	for i := range w.datasets {
		if i < len(values) {
			w.datasets[i].Data = append([]float64(nil), values[i]...)
		} else {
			w.datasets[i].Data = nil
		}
	}
}

// Data returns a copy of the widget state.
func (w *Widget) Data() Data {
	d := Data{
		Type:     w.kind,
		Labels:   append([]string{}, w.labels...),
		Datasets: make([]Dataset, len(w.datasets)),
	}
	for i, ds := range w.datasets {
		ds.Data = append([]float64{}, ds.Data...)
		d.Datasets[i] = ds
	}
	return d
}

// Render draws the current state as an SVG document.
func (w *Widget) Render() string {
	if len(w.labels) == 0 {
		return emptySVG(w.cfg, w.theme, "No data")
	}
	switch w.kind {
	case KindBar:
		return w.renderBar()
	default:
		return w.renderLine()
	}
}

// valueRange returns the Y range covering every dataset. Bars always
// include zero so their heights are comparable.
func (w *Widget) valueRange() (lo, hi float64) {
	lo, hi = math.MaxFloat64, -math.MaxFloat64
	for _, ds := range w.datasets {
		for _, v := range ds.Data {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo > hi {
		return 0, 1
	}
	if w.kind == KindBar {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	if hi-lo < 1e-9 {
		hi = lo + 1
	}
	if w.kind == KindLine {
		pad := (hi - lo) * 0.05
		lo -= pad
		hi += pad
	}
	return lo, hi
}

func (w *Widget) writeFrame(sb *strings.Builder, lo, hi float64) {
	px, py, pw, ph := w.cfg.plotArea()
	sb.WriteString(svgHeader(w.cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		w.cfg.Width, w.cfg.Height, w.theme.Background))

	// Y-axis grid
	gridLines := 5
	for i := 0; i <= gridLines; i++ {
		val := lo + (hi-lo)*float64(i)/float64(gridLines)
		y := py + ph - int(float64(ph)*float64(i)/float64(gridLines))
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`,
			px, y, px+pw, y, w.theme.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-6, y+4, w.theme.FontSize, w.theme.TickColor, escapeXML(w.tickFormat(val))))
	}

	// Legend
	for i, ds := range w.datasets {
		lx := px + 10 + i*160
		swatch := ds.BorderColor
		if swatch == "" {
			swatch = ds.BackgroundColor
		}
		sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="24" height="10" fill="%s"/>`,
			lx, py-24, swatch))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s">%s</text>`,
			lx+30, py-15, w.theme.FontSize+1, w.theme.LegendColor, escapeXML(ds.Label)))
	}
}

// xFor returns the X centre of slot i out of n.
func (w *Widget) xFor(i, n int) float64 {
	px, _, pw, _ := w.cfg.plotArea()
	if w.kind == KindBar || n == 1 {
		slot := float64(pw) / float64(n)
		return float64(px) + slot*float64(i) + slot/2
	}
	return float64(px) + float64(i)*float64(pw)/float64(n-1)
}

func (w *Widget) yFor(v, lo, hi float64) float64 {
	_, py, _, ph := w.cfg.plotArea()
	return float64(py+ph) - (v-lo)/(hi-lo)*float64(ph)
}

func (w *Widget) writeXLabels(sb *strings.Builder) {
	_, py, _, ph := w.cfg.plotArea()
	n := len(w.labels)
	for i, label := range w.labels {
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			w.xFor(i, n), py+ph+18, w.theme.FontSize, w.theme.TickColor, escapeXML(label)))
	}
}

func (w *Widget) renderLine() string {
	lo, hi := w.valueRange()
	_, py, _, ph := w.cfg.plotArea()
	n := len(w.labels)

	var sb strings.Builder
	w.writeFrame(&sb, lo, hi)

	for _, ds := range w.datasets {
		var pts [][2]float64
		for i, v := range ds.Data {
			if i >= n || math.IsNaN(v) {
				continue
			}
			pts = append(pts, [2]float64{w.xFor(i, n), w.yFor(v, lo, hi)})
		}
		if len(pts) == 0 {
			continue
		}
		path := linePath(pts, ds.Tension)
		if ds.Fill && len(pts) > 1 {
			base := float64(py + ph)
			area := fmt.Sprintf("%s L%.1f,%.1f L%.1f,%.1f Z", path, pts[len(pts)-1][0], base, pts[0][0], base)
			sb.WriteString(fmt.Sprintf(`<path d="%s" fill="%s" stroke="none"/>`, area, ds.BackgroundColor))
		}
		sb.WriteString(fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`, path, ds.BorderColor))
		for _, p := range pts {
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`, p[0], p[1], ds.BorderColor))
		}
	}

	w.writeXLabels(&sb)
	sb.WriteString("</svg>")
	return sb.String()
}

func (w *Widget) renderBar() string {
	lo, hi := w.valueRange()
	_, _, pw, _ := w.cfg.plotArea()
	n := len(w.labels)
	groups := len(w.datasets)
	if groups == 0 {
		groups = 1
	}
	slot := float64(pw) / float64(n)
	barW := slot * 0.7 / float64(groups)
	zeroY := w.yFor(0, lo, hi)

	var sb strings.Builder
	w.writeFrame(&sb, lo, hi)

	for di, ds := range w.datasets {
		for i, v := range ds.Data {
			if i >= n || math.IsNaN(v) {
				continue
			}
			x := w.xFor(i, n) - slot*0.35 + float64(di)*barW
			y := w.yFor(v, lo, hi)
			top, height := y, zeroY-y
			if height < 0 {
				top, height = zeroY, -height
			}
			sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="%.0f" fill="%s"/>`,
				x, top, barW, height, ds.BorderRadius, ds.BackgroundColor))
		}
	}

	w.writeXLabels(&sb)
	sb.WriteString("</svg>")
	return sb.String()
}

// linePath builds an SVG path through pts. A positive tension bends the
// segments into cubic curves (Catmull-Rom control points).
func linePath(pts [][2]float64, tension float64) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("M%.1f,%.1f", pts[0][0], pts[0][1]))
	for i := 1; i < len(pts); i++ {
		if tension <= 0 {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", pts[i][0], pts[i][1]))
			continue
		}
		p0 := pts[max(i-2, 0)]
		p1 := pts[i-1]
		p2 := pts[i]
		p3 := pts[min(i+1, len(pts)-1)]
		k := tension / 2
		c1x := p1[0] + (p2[0]-p0[0])*k
		c1y := p1[1] + (p2[1]-p0[1])*k
		c2x := p2[0] - (p3[0]-p1[0])*k
		c2y := p2[1] - (p3[1]-p1[1])*k
		sb.WriteString(fmt.Sprintf(" C%.1f,%.1f %.1f,%.1f %.1f,%.1f", c1x, c1y, c2x, c2y, p2[0], p2[1]))
	}
	return sb.String()
}

func svgHeader(cfg Config) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="100%%" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height)
}

func emptySVG(cfg Config, theme Theme, msg string) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="100%%" viewBox="0 0 %d %d"><text x="%d" y="%d" text-anchor="middle" fill="%s" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, theme.TickColor, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
