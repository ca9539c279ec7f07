package screener

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultMaxScrapeRows caps how many on-page rows the fallback parses.
const DefaultMaxScrapeRows = 100

// defaultScrapeHeaders name the leading columns when the rendered table
// exposes no readable header row.
var defaultScrapeHeaders = []string{
	"Symbol", "Description", "Price", "Change%", "Volume", "Market Cap", "P/E", "EPS",
}

// rowProbes are ordered row-selector strategies for the rendered results
// table. The first probe yielding at least one populated row wins.
var rowProbes = []rowProbe{
	{name: "screener-table-body", rows: "table.tv-screener-table tbody tr", cells: "td"},
	{name: "data-rowkey", rows: "tr[data-rowkey]", cells: "td"},
	{name: "listbox-rows", rows: "div[data-name='screener-rows'] div[role='row']", cells: "[role='cell']"},
	{name: "generic-table", rows: "table tbody tr", cells: "td"},
}

type rowProbe struct {
	name  string
	rows  string
	cells string
}

// scrapeTable pulls the rendered DOM once and parses it in-process, avoiding
// a browser round trip per cell.
func (p *Pipeline) scrapeTable(ctx context.Context) ([]Row, error) {
	html, err := p.session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse rendered page: %w", err)
	}
	headers := scrapeHeaders(doc)
	for _, probe := range rowProbes {
		sel := doc.Find(probe.rows)
		if sel.Length() == 0 {
			continue
		}
		rows := collectRows(sel, probe.cells, headers, p.maxScrapeRows)
		if len(rows) > 0 {
			p.logger.Debug("scrape probe matched",
				zap.String("probe", probe.name), zap.Int("rows", len(rows)))
			return rows, nil
		}
	}
	return nil, nil
}

// scrapeHeaders reads the table header cells, falling back to the default
// column names when the page renders none.
func scrapeHeaders(doc *goquery.Document) []string {
	var headers []string
	doc.Find("thead th").Each(func(_ int, s *goquery.Selection) {
		headers = append(headers, cleanText(s.Text()))
	})
	if len(headers) == 0 {
		return defaultScrapeHeaders
	}
	return headers
}

// collectRows extracts up to limit rows from sel. The first cell prefers the
// symbol link text when one is present, since the raw cell concatenates the
// ticker with exchange decorations.
func collectRows(sel *goquery.Selection, cellSelector string, headers []string, limit int) []Row {
	var rows []Row
	sel.EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := tr.Find(cellSelector)
		if cells.Length() == 0 {
			return true
		}
		row := make(Row, 0, cells.Length())
		cells.Each(func(i int, td *goquery.Selection) {
			val := cleanText(td.Text())
			if i == 0 {
				if link := td.Find("a[href*='/symbols/']").First(); link.Length() > 0 {
					val = cleanText(link.Text())
				}
			}
			col := fmt.Sprintf("Column%d", i+1)
			if i < len(headers) {
				col = headers[i]
			}
			row = append(row, Cell{Column: col, Value: val})
		})
		rows = append(rows, row)
		return len(rows) < limit
	})
	return rows
}
