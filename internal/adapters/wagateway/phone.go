package wagateway

import "strings"

const countryPrefix = "62"

// NormalizePhone strips everything that is not a digit and forces the
// international prefix: a leading 0 becomes 62, a bare 8... gets 62
// prepended. A number that still looks wrong afterwards is the gateway's
// problem to reject.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case digits == "":
		return digits
	case strings.HasPrefix(digits, countryPrefix):
		return digits
	case strings.HasPrefix(digits, "0"):
		return countryPrefix + digits[1:]
	case strings.HasPrefix(digits, "8"):
		return countryPrefix + digits
	default:
		return digits
	}
}
