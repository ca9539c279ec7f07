// Package screener implements the data-acquisition core: the TTL-cached
// screener configuration, the index filter protocol, the export download
// detector, the scrape fallback, and the fetch pipeline that orchestrates
// them over a browser session.
package screener
