package extract

import "strings"

// honorifics maps the canonical form of a recognized title token to its
// display form, captured as the record's title.
var honorifics = map[string]string{
	"dr":   "Dr.",
	"mr":   "Mr.",
	"mrs":  "Mrs.",
	"ms":   "Ms.",
	"miss": "Miss",
}

// credentials is the post-nominal vocabulary stripped from names. Tokens are
// canonicalized (lowercased, dots removed) before lookup, so "L.Ac." and
// "PA-C" match.
var credentials = map[string]struct{}{
	"md":   {},
	"do":   {},
	"phd":  {},
	"rn":   {},
	"np":   {},
	"pa":   {},
	"pa-c": {},
	"pac":  {},
	"dc":   {},
	"dacm": {},
	"lac":  {},
}

// ParsedName is the result of splitting a raw provider name.
type ParsedName struct {
	Title     string
	FullName  string
	FirstName string
	LastName  string
}

// ParseName strips honorific and credential tokens from raw via
// case-insensitive whole-word matching, strips residual punctuation, and
// splits on whitespace. Two tokens become first/last; with more, everything
// but the last token joins into the first name; a single token becomes the
// first name with an empty last name.
func ParseName(raw string) ParsedName {
	var parsed ParsedName
	var kept []string

	for _, token := range strings.FieldsFunc(raw, splitNameRune) {
		canon := canonicalToken(token)
		if canon == "" {
			continue
		}
		if display, ok := honorifics[canon]; ok {
			if parsed.Title == "" {
				parsed.Title = display
			}
			continue
		}
		if _, ok := credentials[canon]; ok {
			continue
		}
		if cleaned := strings.Trim(token, ".,()"); cleaned != "" {
			kept = append(kept, cleaned)
		}
	}

	parsed.FullName = strings.Join(kept, " ")
	switch len(kept) {
	case 0:
	case 1:
		parsed.FirstName = kept[0]
	case 2:
		parsed.FirstName = kept[0]
		parsed.LastName = kept[1]
	default:
		parsed.FirstName = strings.Join(kept[:len(kept)-1], " ")
		parsed.LastName = kept[len(kept)-1]
	}
	return parsed
}

func splitNameRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == ','
}

func canonicalToken(token string) string {
	canon := strings.ToLower(token)
	canon = strings.ReplaceAll(canon, ".", "")
	return strings.Trim(canon, ",()")
}
