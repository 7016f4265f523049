package dashboard

import (
	"github.com/goubera/top10/internal/chart"
	"github.com/goubera/top10/pkg/models"
	"github.com/goubera/top10/pkg/utils"
)

// ChartController owns the two chart widgets of the page.
type ChartController struct {
	volume    *chart.Widget
	newTokens *chart.Widget
}

// NewChartController creates both widgets with the shared dark theme.
func NewChartController() *ChartController {
	theme := chart.DarkTheme()
	return &ChartController{
		volume: chart.New(chart.KindLine, theme, []chart.Dataset{{
			Label:           "Total Volume (USD)",
			BorderColor:     "#9945FF",
			BackgroundColor: "rgba(153, 69, 255, 0.1)",
			Tension:         0.4,
			Fill:            true,
		}}, chart.WithTickFormat(utils.FormatCurrency)),
		newTokens: chart.New(chart.KindBar, theme, []chart.Dataset{{
			Label:           "New Tokens",
			BackgroundColor: "#14F195",
			BorderRadius:    4,
		}}, chart.WithTickFormat(utils.FormatCount)),
	}
}

// Update replaces both datasets from the snapshot's recent days (oldest
// first) and redraws. It reports whether anything changed.
func (c *ChartController) Update(b *Bindings, snap *models.StatsSnapshot) bool {
	days := snap.Chronological()
	if len(days) == 0 {
		return false
	}

	labels := make([]string, len(days))
	volumes := make([]float64, len(days))
	counts := make([]float64, len(days))
	for i, d := range days {
		labels[i] = d.Date
		volumes[i] = d.Volume
		counts[i] = d.NewTokens
	}

	c.volume.SetData(labels, volumes)
	c.newTokens.SetData(labels, counts)

	b.VolumeChart.SetHtml(c.volume.Render())
	b.NewTokensChart.SetHtml(c.newTokens.Render())
	return true
}
