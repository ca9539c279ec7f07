package screener

import "strings"

// indexAliases maps user-facing NSE index tokens (uppercased) to the
// exchange codes the screener UI uses internally.
var indexAliases = map[string]string{
	"NIFTY50":          "NIFTY",
	"NIFTY":            "NIFTY",
	"NIFTYBANK":        "CNXBANK",
	"BANKNIFTY":        "CNXBANK",
	"NIFTYIT":          "CNXIT",
	"NIFTYMETAL":       "CNXMETAL",
	"NIFTYPHARMA":      "CNXPHARMA",
	"NIFTYAUTO":        "CNXAUTO",
	"NIFTYFMCG":        "CNXFMCG",
	"NIFTYENERGY":      "CNXENERGY",
	"NIFTYINFRA":       "CNXINFRA",
	"NIFTYMEDIA":       "CNXMEDIA",
	"NIFTYMNC":         "CNXMNC",
	"NIFTYPSUBANK":     "CNXPSUBANK",
	"NIFTYREALTY":      "CNXREALTY",
	"NIFTYCOMMODITIES": "CNXCOMMODITIES",
	"NIFTYCONSUMPTION": "CNXCONSUMPTION",
	"NIFTYSERVICES":    "CNXSERVICES",
	"NIFTYMIDCAP50":    "CNXMIDCAP",
	"NIFTYSMALLCAP100": "CNXSMALLCAP",
	"NIFTYMIDCAP100":   "CNXMID100",
	"NIFTYMIDCAP150":   "CNXMID150",
	"NIFTYSMALLCAP50":  "CNXSMALL50",
	"NIFTYSMALLCAP250": "CNXSMALL250",
}

// singleFilterNames maps exchange codes to the display names shown by the
// single-selection filter dialog.
var singleFilterNames = map[string]string{
	"NIFTY":     "Nifty 50",
	"CNXBANK":   "Nifty Bank",
	"CNXIT":     "Nifty IT",
	"CNX100":    "Nifty 100",
	"CNX200":    "Nifty 200",
	"CNXAUTO":   "Nifty Auto",
	"CNXPHARMA": "Nifty Pharma",
	"CNXFMCG":   "Nifty FMCG",
	"CNXMETAL":  "Nifty Metal",
	"CNXENERGY": "Nifty Energy",
}

// multiFilterNames maps exchange codes to the display names shown by the
// multi-selection dialog. Several labels differ from the single dialog, so
// the tables stay separate.
var multiFilterNames = map[string]string{
	"NIFTY":     "Nifty",
	"CNXBANK":   "Bank Nifty",
	"CNXIT":     "Nifty IT",
	"CNXAUTO":   "Nifty Auto",
	"CNXPHARMA": "Nifty Pharma",
	"CNXFMCG":   "Nifty FMCG",
	"CNXMETAL":  "Nifty Metal",
	"CNXENERGY": "Nifty Energy",
}

// MapIndexCodes resolves a comma-separated filter expression into exchange
// codes, preserving order. Tokens are trimmed and uppercased; empty tokens
// are dropped and unknown tokens pass through as-is.
func MapIndexCodes(filter string) []string {
	var codes []string
	for _, tok := range strings.Split(filter, ",") {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		if code, ok := indexAliases[tok]; ok {
			codes = append(codes, code)
		} else {
			codes = append(codes, tok)
		}
	}
	return codes
}

// DisplayName returns the label to type into the filter search box for an
// exchange code. Codes without a known label are searched for verbatim.
func DisplayName(code string, multi bool) string {
	names := singleFilterNames
	if multi {
		names = multiFilterNames
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}
