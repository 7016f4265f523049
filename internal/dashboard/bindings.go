// Package dashboard owns the server-held dashboard document and everything
// that mutates it: the region updaters, the chart controller, the toast and
// loading overlay, the data loader and the refresh scheduler.
package dashboard

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Element ids of the dashboard page.
const (
	IDTokensTracked  = "tokensTracked"
	IDTotalVolume    = "totalVolume"
	IDNewTokens      = "newTokens"
	IDAvgChange      = "avgChange"
	IDTopGainers     = "topGainersTable"
	IDNewTokensTable = "newTokensTable"
	IDTrending       = "trendingTable"
	IDVolumeChart    = "volumeChart"
	IDNewTokensChart = "newTokensChart"
	IDLastUpdate     = "lastUpdate"
	IDLoading        = "loadingOverlay"
	IDToast          = "toast"
)

// Bindings holds the document regions the updaters write to. It is built
// once by Bind and passed by pointer; nothing looks elements up by id after
// that.
type Bindings struct {
	TokensTracked *goquery.Selection
	TotalVolume   *goquery.Selection
	NewTokens     *goquery.Selection
	AvgChange     *goquery.Selection

	TopGainersBody *goquery.Selection // tbody of #topGainersTable
	NewTokensBody  *goquery.Selection // tbody of #newTokensTable
	TrendingBody   *goquery.Selection // tbody of #trendingTable

	VolumeChart    *goquery.Selection
	NewTokensChart *goquery.Selection

	LastUpdate     *goquery.Selection
	LoadingOverlay *goquery.Selection
	Toast          *goquery.Selection
}

// Bind resolves every region of doc. A missing element is an error: the
// page and the updaters are built together and must agree.
func Bind(doc *goquery.Document) (*Bindings, error) {
	var missing []string
	find := func(selector string) *goquery.Selection {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			missing = append(missing, selector)
		}
		return sel
	}

	b := &Bindings{
		TokensTracked:  find("#" + IDTokensTracked),
		TotalVolume:    find("#" + IDTotalVolume),
		NewTokens:      find("#" + IDNewTokens),
		AvgChange:      find("#" + IDAvgChange),
		TopGainersBody: find("#" + IDTopGainers + " tbody"),
		NewTokensBody:  find("#" + IDNewTokensTable + " tbody"),
		TrendingBody:   find("#" + IDTrending + " tbody"),
		VolumeChart:    find("#" + IDVolumeChart),
		NewTokensChart: find("#" + IDNewTokensChart),
		LastUpdate:     find("#" + IDLastUpdate),
		LoadingOverlay: find("#" + IDLoading),
		Toast:          find("#" + IDToast),
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dashboard document is missing %v", missing)
	}
	return b, nil
}
