package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/healthdex/provider-harvest/internal/provider"
)

// CardSelectors locates the summary fields inside one listing-page result
// card.
type CardSelectors struct {
	Card       string `mapstructure:"card"`
	Name       string `mapstructure:"name"`
	Specialty  string `mapstructure:"specialty"`
	DetailLink string `mapstructure:"detail_link"`
}

// DefaultCardSelectors returns the listing-card selector set.
func DefaultCardSelectors() CardSelectors {
	return CardSelectors{
		Card:       "div.webmd-card.provider-result-card",
		Name:       "h3 a",
		Specialty:  "div.specialty",
		DetailLink: "a.readmore",
	}
}

// ParseCard reads the summary fragment and the relative detail link from one
// result card. The link may be empty when the card has no profile page.
func ParseCard(card *goquery.Selection, sel CardSelectors) (provider.Fragment, string) {
	var frag provider.Fragment

	if raw := strings.TrimSpace(card.Find(sel.Name).First().Text()); raw != "" {
		parsed := ParseName(raw)
		frag.Title = parsed.Title
		frag.FullName = parsed.FullName
		frag.FirstName = parsed.FirstName
		frag.LastName = parsed.LastName
	}
	frag.Specialties = SplitSpecialties(card.Find(sel.Specialty))

	link, _ := card.Find(sel.DetailLink).First().Attr("href")
	return frag, strings.TrimSpace(link)
}
