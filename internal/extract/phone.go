package extract

import (
	"fmt"
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D+`)

// NormalizePhone reduces raw to its digits and formats ddd-ddd-dddd when
// exactly ten digits remain. Any other digit count is returned as the bare
// digit string, ungrouped.
func NormalizePhone(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) != 10 {
		return digits
	}
	return fmt.Sprintf("%s-%s-%s", digits[:3], digits[3:6], digits[6:])
}

// phoneFromTelHref extracts the number from a telephone URI, falling back to
// the provided display text.
func phoneFromTelHref(href, text string) string {
	if trimmed := strings.TrimPrefix(href, "tel:"); trimmed != href && trimmed != "" {
		return NormalizePhone(trimmed)
	}
	return NormalizePhone(text)
}
