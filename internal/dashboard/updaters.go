package dashboard

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/goubera/top10/pkg/models"
	"github.com/goubera/top10/pkg/utils"
)

// Placeholder texts for empty tables.
const (
	emptyTopGainers = "No data available"
	emptyNewTokens  = "No new tokens today"
	emptyTrending   = "No trending data available"
)

// statIDs are the elements UpdateStats writes.
var statIDs = []string{IDTokensTracked, IDTotalVolume, IDNewTokens, IDAvgChange}

// UpdateStats writes the four stat cards.
func UpdateStats(b *Bindings, snap *models.StatsSnapshot) {
	if snap == nil {
		return
	}
	today := snap.TodayStats

	b.TokensTracked.SetText(utils.FormatCount(today.TokensTracked))
	b.TotalVolume.SetText(utils.FormatCurrency(today.TotalVolume))
	b.NewTokens.SetText(utils.FormatCount(today.NewTokens))

	b.AvgChange.SetText(utils.FormatPercent(today.AvgPriceChange))
	b.AvgChange.SetAttr("class", "stat-value "+signClass(today.AvgPriceChange))
}

// UpdateTopGainers renders the top gainers table; the last column is the
// market cap.
func UpdateTopGainers(b *Bindings, tokens []models.TokenRecord) {
	renderTokenRows(b.TopGainersBody, tokens, emptyTopGainers, func(t models.TokenRecord) string {
		if t.MarketCap == nil || *t.MarketCap == 0 {
			return "-"
		}
		return utils.FormatCurrency(*t.MarketCap)
	})
}

// UpdateNewTokens renders the new tokens table; the last column is the
// token age relative to now.
func UpdateNewTokens(b *Bindings, tokens []models.TokenRecord, now time.Time) {
	renderTokenRows(b.NewTokensBody, tokens, emptyNewTokens, func(t models.TokenRecord) string {
		return utils.FormatAge(t.CreatedAt, now)
	})
}

// UpdateTrending renders the trending table.
func UpdateTrending(b *Bindings, tokens []models.TrendingTokenRecord) {
	if len(tokens) == 0 {
		b.TrendingBody.SetHtml(placeholderRow(6, emptyTrending))
		return
	}

	var sb strings.Builder
	for i, t := range tokens {
		sb.WriteString("<tr>")
		writeCell(&sb, "", strconv.Itoa(i+1))
		writeCell(&sb, "token-symbol", t.TokenSymbol)
		writeCell(&sb, "token-address", utils.TruncateAddress(t.TokenAddress))
		writeCell(&sb, "", utils.FormatCount(t.DaysInTop)+" days")
		writeCell(&sb, "", utils.FormatCurrency(t.AvgVolume24h))
		writeCell(&sb, signClass(t.AvgPriceChange), utils.FormatPercent(t.AvgPriceChange))
		sb.WriteString("</tr>")
	}
	b.TrendingBody.SetHtml(sb.String())
}

// UpdateLastUpdate stamps the "last updated" label.
func UpdateLastUpdate(b *Bindings, now time.Time, loc *time.Location) {
	b.LastUpdate.SetText(utils.FormatTimestamp(now, loc))
}

// renderTokenRows replaces tbody with one row per token. The two token
// tables share all columns except the last.
func renderTokenRows(tbody *goquery.Selection, tokens []models.TokenRecord, empty string, last func(models.TokenRecord) string) {
	if len(tokens) == 0 {
		tbody.SetHtml(placeholderRow(8, empty))
		return
	}

	var sb strings.Builder
	for i, t := range tokens {
		sb.WriteString("<tr>")
		writeCell(&sb, "", strconv.Itoa(i+1))
		writeCell(&sb, "token-symbol", t.TokenSymbol)
		writeCell(&sb, "", t.TokenName)
		writeCell(&sb, "", utils.FormatPrice(t.PriceUSD))
		writeCell(&sb, "", utils.FormatCurrency(t.Volume24h))
		writeCell(&sb, signClass(t.PriceChange24h), utils.FormatPercent(t.PriceChange24h))
		writeCell(&sb, "", utils.FormatCurrency(t.LiquidityUSD))
		writeCell(&sb, "", last(t))
		sb.WriteString("</tr>")
	}
	tbody.SetHtml(sb.String())
}

// writeCell appends a <td>; text is always escaped.
func writeCell(sb *strings.Builder, class, text string) {
	if class == "" {
		sb.WriteString("<td>")
	} else {
		sb.WriteString(`<td class="` + class + `">`)
	}
	sb.WriteString(utils.EscapeHTML(text))
	sb.WriteString("</td>")
}

func placeholderRow(colspan int, text string) string {
	return `<tr><td colspan="` + strconv.Itoa(colspan) + `" class="loading">` + utils.EscapeHTML(text) + `</td></tr>`
}

// signClass treats zero as positive.
func signClass(v float64) string {
	if v >= 0 {
		return "positive"
	}
	return "negative"
}
