package inventory

import (
	"regexp"
	"strconv"
)

// quantityPatterns are tried in priority order and the first numeric match
// wins. The ordering is a contract, not an implementation detail: a dosage
// of "10 tablets, 500mg" must parse as 10, not 500.
var quantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*(?:tablets?|pills?|capsules?|units?)`),
	regexp.MustCompile(`(?i)(\d+)\s*mg\b`),
	regexp.MustCompile(`(?i)(\d+)\s*ml\b`),
	regexp.MustCompile(`(\d+)`),
}

// ExtractQuantity parses the required unit count out of a free-text dosage
// string. Dosages with no numeric content default to 1.
func ExtractQuantity(dosage string) int {
	for _, p := range quantityPatterns {
		if m := p.FindStringSubmatch(dosage); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 {
				continue
			}
			return n
		}
	}
	return 1
}
