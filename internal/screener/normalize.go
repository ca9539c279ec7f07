package screener

import "strings"

// strategyAliases maps known store labels, typos included, to canonical
// keys. Lookup is case-sensitive: unknown labels fall through to the
// mechanical rewrite in Normalize.
var strategyAliases = map[string]string{
	"BTST_STBT":        "btst",
	"BTST":             "btst",
	"Swing":            "swing",
	"swing":            "swing",
	"position_montly":  "position",
	"position_monthly": "position",
	"position":         "position",
	"positional":       "position",
}

// Normalize converts a raw strategy label from the store into a canonical
// screener key. Aliases win; otherwise the label is lowercased with spaces
// and hyphens folded to underscores. Idempotent: normalizing an already
// canonical key returns it unchanged.
func Normalize(raw string) string {
	if key, ok := strategyAliases[raw]; ok {
		return key
	}
	key := strings.ToLower(raw)
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}
