package screener

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func scrapePipeline(sess *fakeSession, maxRows int) *Pipeline {
	return &Pipeline{
		session:       sess,
		logger:        zap.NewNop(),
		maxScrapeRows: maxRows,
	}
}

const screenerTableHTML = `<html><body>
<table class="tv-screener-table">
  <thead><tr><th>Symbol</th><th>Price</th><th>Change %</th></tr></thead>
  <tbody>
    <tr><td><a href="/symbols/NSE-RELIANCE/">RELIANCE</a><span>NSE</span></td><td>2 901.50</td><td>+1.2%</td></tr>
    <tr><td><a href="/symbols/NSE-TCS/">TCS</a><span>NSE</span></td><td>4102.00</td><td>-0.4%</td></tr>
  </tbody>
</table>
</body></html>`

func TestScrapeTableParsesHeaderedTable(t *testing.T) {
	sess := newFakeSession()
	sess.html = screenerTableHTML

	rows, err := scrapePipeline(sess, 100).scrapeTable(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	sym, ok := rows[0].Get("Symbol")
	require.True(t, ok)
	require.Equal(t, "RELIANCE", sym, "symbol cell must prefer the link text over the decorated cell")

	price, ok := rows[0].Get("Price")
	require.True(t, ok)
	require.Equal(t, "2 901.50", price)
}

func TestScrapeTableDefaultHeaders(t *testing.T) {
	sess := newFakeSession()
	sess.html = `<html><body><table><tbody>
<tr><td>INFY</td><td>desc</td><td>1650</td></tr>
</tbody></table></body></html>`

	rows, err := scrapePipeline(sess, 100).scrapeTable(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	val, ok := rows[0].Get("Symbol")
	require.True(t, ok)
	require.Equal(t, "INFY", val)
}

func TestScrapeTableOverflowColumns(t *testing.T) {
	sess := newFakeSession()
	cells := strings.Repeat("<td>x</td>", 10)
	sess.html = "<html><body><table><tbody><tr>" + cells + "</tr></tbody></table></body></html>"

	rows, err := scrapePipeline(sess, 100).scrapeTable(context.Background())
	require.NoError(t, err)
	require.Len(t, rows[0], 10)
	_, ok := rows[0].Get("Column9")
	require.True(t, ok, "columns beyond the default headers get positional names")
}

func TestScrapeTableRowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><table><tbody>")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "<tr><td>SYM%d</td><td>1</td></tr>", i)
	}
	b.WriteString("</tbody></table></body></html>")

	sess := newFakeSession()
	sess.html = b.String()

	rows, err := scrapePipeline(sess, 10).scrapeTable(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 10)
}

func TestScrapeTableNoRows(t *testing.T) {
	sess := newFakeSession()
	sess.html = "<html><body><div>loading...</div></body></html>"

	rows, err := scrapePipeline(sess, 100).scrapeTable(context.Background())
	require.NoError(t, err)
	require.Empty(t, rows)
}
