package screener

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// exportMenuProbes locate the control that opens the screener's export menu.
// The upstream UI renames these hooks regularly, so the chain runs from the
// current markup down to progressively looser matches.
var exportMenuProbes = []clickProbe{
	{name: "export-data-button", selector: `button[data-name="screener-export-data"]`},
	{name: "toolbar-export-icon", selector: `//button[@aria-label='Export screener data']`},
	{name: "toolbar-overflow-menu", selector: `//div[contains(@class,'tv-screener-toolbar')]//button[contains(@class,'menu')]`},
}

// exportItemProbes locate the menu entry that actually starts the download.
var exportItemProbes = []clickProbe{
	{name: "export-menu-item", selector: `//div[@role='menuitem'][contains(.,'Export screen results')]`},
	{name: "export-menu-text", selector: `//span[contains(text(),'Export screen results')]`},
	{name: "download-csv-item", selector: `//div[@role='menuitem'][contains(.,'Download CSV')]`},
}

// triggerExport walks the export probe chains: first the control that opens
// the menu, then the item that starts the download. Some layouts start the
// download straight from the first control, so a missing menu item after a
// successful open is not an error.
func (p *Pipeline) triggerExport(ctx context.Context) error {
	opened := ""
	for _, probe := range exportMenuProbes {
		if err := p.session.Click(ctx, probe.selector); err == nil {
			opened = probe.name
			break
		}
	}
	if opened == "" {
		return fmt.Errorf("no export control matched: %w", ErrDownloadTimeout)
	}
	p.pause.Pause(ctx, p.timings.PostOpenPause)
	for _, probe := range exportItemProbes {
		if err := p.session.Click(ctx, probe.selector); err == nil {
			p.logger.Debug("export triggered",
				zap.String("menu", opened), zap.String("item", probe.name))
			return nil
		}
	}
	p.logger.Debug("export menu opened without item, assuming direct download",
		zap.String("menu", opened))
	return nil
}

// parseExportFile reads a downloaded CSV into rows, preserving header order.
// Duplicate or blank header names get positional stand-ins so no column is
// lost. A file with a header but no data rows parses to zero rows.
func parseExportFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse export csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}
	header := dedupeHeader(records[0])
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, 0, len(rec))
		for i, val := range rec {
			col := fmt.Sprintf("Column%d", i+1)
			if i < len(header) {
				col = header[i]
			}
			row = append(row, Cell{Column: col, Value: val})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// dedupeHeader trims header cells (dropping a BOM on the first one), names
// blank columns positionally, and suffixes repeats so every column name is
// unique.
func dedupeHeader(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, name := range raw {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
		if name == "" {
			name = fmt.Sprintf("Column%d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		out[i] = name
	}
	return out
}
