package app

import (
	"fmt"
	"sort"
)

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// formatLimit renders a rate limit; zero or less means unlimited.
func formatLimit(n int64) string {
	if n <= 0 {
		return "none"
	}
	return formatBytes(n) + "/s"
}

func sortedStates(states map[string]int) []string {
	keys := make([]string, 0, len(states))
	for k := range states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
