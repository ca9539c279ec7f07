package screener

// builtinDefaults returns the hardcoded screener set used when the store is
// unreachable and no earlier refresh succeeded. Rebuilt on every call so a
// caller can never poison the fallback for the next one.
func builtinDefaults() map[string]Descriptor {
	return map[string]Descriptor{
		"btst": {
			Key:            "btst",
			OriginalName:   "BTST_STBT",
			URL:            "https://www.tradingview.com/screener/0DOKyjG6/",
			Description:    "Buy Today Sell Tomorrow - Short-term momentum trades",
			HoldingPeriod:  "BTST",
			TradeType:      "LONG",
			InstrumentType: "EQ",
			Enabled:        true,
		},
		"swing": {
			Key:            "swing",
			OriginalName:   "Swing",
			URL:            "https://www.tradingview.com/screener/mToYMbsV/",
			Description:    "Swing trading - Medium-term trades (2-10 days)",
			HoldingPeriod:  "swing",
			TradeType:      "LONG",
			InstrumentType: "EQ",
			Enabled:        true,
		},
		"position": {
			Key:            "position",
			OriginalName:   "position_montly",
			URL:            "https://www.tradingview.com/screener/xERJ4xGd/",
			Description:    "Position trading - Long-term trades (weeks to months)",
			HoldingPeriod:  "positional",
			TradeType:      "both",
			InstrumentType: "EQ",
			Enabled:        true,
		},
	}
}
