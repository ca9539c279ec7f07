package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

// DOM primitives. Selectors starting with "//" or "(" are treated as XPath,
// everything else as CSS. Element lookups never wait for the element to
// appear: absence is an immediate error, which lets callers drive probe
// chains over alternative selectors.

// Location returns the current page URL.
func (m *Manager) Location(ctx context.Context) (string, error) {
	var out string
	if err := m.run(ctx, chromedp.Location(&out)); err != nil {
		return "", err
	}
	return out, nil
}

// Navigate loads url and waits for the document body.
func (m *Manager) Navigate(ctx context.Context, url string) error {
	return m.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Reload refreshes the current page and waits for the document body.
func (m *Manager) Reload(ctx context.Context) error {
	return m.run(ctx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Click clicks the first element matching selector.
func (m *Manager) Click(ctx context.Context, selector string) error {
	return m.ClickNth(ctx, selector, 0)
}

// ClickNth clicks the n-th (zero-based) element matching selector.
func (m *Manager) ClickNth(ctx context.Context, selector string, n int) error {
	nodes, err := m.nodes(ctx, selector)
	if err != nil {
		return err
	}
	if n < 0 || n >= len(nodes) {
		return fmt.Errorf("selector %q matched %d elements, want index %d", selector, len(nodes), n)
	}
	return m.run(ctx, chromedp.MouseClickNode(nodes[n]))
}

// SendKeys focuses the first element matching selector and types text into it.
func (m *Manager) SendKeys(ctx context.Context, selector, text string) error {
	nodes, err := m.nodes(ctx, selector)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("selector %q matched no elements", selector)
	}
	return m.run(ctx, chromedp.KeyEventNode(nodes[0], text))
}

// ClearInput empties the input element matching selector.
func (m *Manager) ClearInput(ctx context.Context, selector string) error {
	nodes, err := m.nodes(ctx, selector)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("selector %q matched no elements", selector)
	}
	return m.run(ctx, chromedp.Clear(selector, queryOption(selector)))
}

// PressEscape sends the Escape key to the page.
func (m *Manager) PressEscape(ctx context.Context) error {
	return m.run(ctx, chromedp.KeyEvent(kb.Escape))
}

// ClickAt clicks absolute viewport coordinates.
func (m *Manager) ClickAt(ctx context.Context, x, y float64) error {
	return m.run(ctx, chromedp.MouseClickXY(x, y))
}

// Texts returns the visible text of every element matching selector, in
// document order. No matches yields an empty slice.
func (m *Manager) Texts(ctx context.Context, selector string) ([]string, error) {
	nodes, err := m.nodes(ctx, selector)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(nodes))
	for _, node := range nodes {
		var text string
		if err := m.run(ctx, chromedp.Text([]cdp.NodeID{node.NodeID}, &text, chromedp.ByNodeID)); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// HTML returns the full rendered document markup.
func (m *Manager) HTML(ctx context.Context) (string, error) {
	var html string
	if err := m.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// nodes resolves selector to its current matches without waiting.
func (m *Manager) nodes(ctx context.Context, selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := m.run(ctx, chromedp.Nodes(selector, &nodes, queryOption(selector), chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// queryOption picks the chromedp selector strategy: XPath for selectors
// starting with "//" or "(", CSS otherwise.
func queryOption(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "//") || strings.HasPrefix(selector, "(") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}
