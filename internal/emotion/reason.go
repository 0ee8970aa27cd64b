package emotion

import (
	"fmt"
	"sort"
	"strings"
)

// scoreTable is the per-emotion contribution the classifier applies when an
// emotion holds at least 15% of a frame.
var scoreTable = map[string]float64{
	"happy":    5,
	"surprise": 3,
	"neutral":  3,
	"sad":      -3,
	"angry":    -4,
	"disgust":  -4,
	"fear":     -4,
}

const reasonSeparator = ", "

// FormatReason renders contributors as "name(percent%): (±score)", highest
// share first.
func FormatReason(contributors map[string]float64) string {
	names := make([]string, 0, len(contributors))
	for name := range contributors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := contributors[names[i]], contributors[names[j]]
		if pi != pj {
			return pi > pj
		}
		return names[i] < names[j]
	})
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s(%.1f%%): (%+g)", name, contributors[name], scoreTable[strings.ToLower(name)]))
	}
	return strings.Join(parts, reasonSeparator)
}

// ReasonEmotions returns the emotion names of a reason string in order.
func ReasonEmotions(reason string) []string {
	if strings.TrimSpace(reason) == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(reason, reasonSeparator) {
		name, _, ok := strings.Cut(part, "(")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
