package screener

import (
	"math"
	"strings"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cloneDescriptors(entries map[string]Descriptor) map[string]Descriptor {
	out := make(map[string]Descriptor, len(entries))
	for k, v := range entries {
		out[k] = v
	}
	return out
}
