package dashboard

import (
	"fmt"
	"io"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/goubera/top10/internal/chart"
	"github.com/goubera/top10/pkg/models"
)

// Patch is the new outer HTML of one element, pushed to live browsers.
type Patch struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

// Publisher receives patches after every mutation. Publish is called with
// the view locked: it must not block or call back into the view.
type Publisher interface {
	Publish(p Patch)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Patch)

// Publish calls f(p).
func (f PublisherFunc) Publish(p Patch) { f(p) }

// View owns the dashboard document. All reads and writes go through it so
// concurrent loaders, timers and HTTP handlers never race on the tree.
type View struct {
	mu     sync.Mutex
	doc    *goquery.Document
	b      *Bindings
	charts *ChartController
	pub    Publisher
	log    *zap.Logger
}

// NewView parses the page template and binds its regions.
func NewView(page io.Reader, log *zap.Logger) (*View, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, fmt.Errorf("parse dashboard page: %w", err)
	}
	b, err := Bind(doc)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &View{
		doc:    doc,
		b:      b,
		charts: NewChartController(),
		log:    log,
	}, nil
}

// SetPublisher sets where patches go. A nil publisher drops them.
func (v *View) SetPublisher(p Publisher) {
	v.mu.Lock()
	v.pub = p
	v.mu.Unlock()
}

// Update runs fn against the bindings and publishes the new markup of every
// element named in ids, all under the view lock, so browsers see patches in
// the order they were applied.
func (v *View) Update(fn func(b *Bindings), ids ...string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fn(v.b)
	if v.pub == nil {
		return
	}
	for _, id := range ids {
		html, err := goquery.OuterHtml(v.doc.Find("#" + id).First())
		if err != nil {
			v.log.Warn("render patch", zap.String("id", id), zap.Error(err))
			continue
		}
		v.pub.Publish(Patch{ID: id, HTML: html})
	}
}

// UpdateCharts refreshes both charts from snap. Snapshots without recent
// days leave the charts as they are.
func (v *View) UpdateCharts(snap *models.StatsSnapshot) {
	v.Update(func(b *Bindings) {
		v.charts.Update(b, snap)
	}, IDVolumeChart, IDNewTokensChart)
}

// HTML renders the whole document.
func (v *View) HTML() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.doc.Html()
}

// WriteTo writes the whole document to w.
func (v *View) WriteTo(w io.Writer) (int64, error) {
	html, err := v.HTML()
	if err != nil {
		return 0, err
	}
	n, err := io.WriteString(w, html)
	return int64(n), err
}

// Text returns the text content of the element with the given id.
func (v *View) Text(id string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.doc.Find("#" + id).First().Text()
}

// Inspect runs fn with read access to the document.
func (v *View) Inspect(fn func(doc *goquery.Document)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(v.doc)
}

// ToastState is the visible state of the toast.
type ToastState struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Visible bool   `json:"visible"`
}

// State is a JSON-friendly summary of the page.
type State struct {
	LastUpdate string                `json:"last_update"`
	Loading    bool                  `json:"loading"`
	Toast      ToastState            `json:"toast"`
	Charts     map[string]chart.Data `json:"charts"`
}

// State returns the current page summary.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	toast := ToastState{
		Message: v.b.Toast.Text(),
		Visible: !v.b.Toast.HasClass("hidden"),
	}
	for _, kind := range []string{"success", "error"} {
		if v.b.Toast.HasClass(kind) {
			toast.Kind = kind
		}
	}
	return State{
		LastUpdate: v.b.LastUpdate.Text(),
		Loading:    !v.b.LoadingOverlay.HasClass("hidden"),
		Toast:      toast,
		Charts: map[string]chart.Data{
			IDVolumeChart:    v.charts.volume.Data(),
			IDNewTokensChart: v.charts.newTokens.Data(),
		},
	}
}
