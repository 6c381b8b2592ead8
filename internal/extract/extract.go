// Package extract maps rendered directory markup into partial provider
// records. Every field is independently optional: a missing node yields the
// field's zero value and never aborts the other fields.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/healthdex/provider-harvest/internal/provider"
)

// Selectors locates each field in the rendered markup. Defaults match the
// directory's current page structure; all are overridable via configuration.
type Selectors struct {
	Name              string `mapstructure:"name"`
	Specialty         string `mapstructure:"specialty"`
	WebsiteLink       string `mapstructure:"website_link"`
	EmailLink         string `mapstructure:"email_link"`
	PrimaryPhone      string `mapstructure:"primary_phone"`
	InsuranceItems    string `mapstructure:"insurance_items"`
	EducationSections string `mapstructure:"education_sections"`
	EducationSchool   string `mapstructure:"education_school"`
	EducationYear     string `mapstructure:"education_year"`
	QuickFactItems    string `mapstructure:"quick_fact_items"`
	LocationLines     string `mapstructure:"location_lines"`
	LocationName      string `mapstructure:"location_name"`
	LocationAddress   string `mapstructure:"location_address"`
	LocationCity      string `mapstructure:"location_city"`
	LocationState     string `mapstructure:"location_state"`
	LocationPhone     string `mapstructure:"location_phone"`
	Breadcrumb        string `mapstructure:"breadcrumb"`
	NPI               string `mapstructure:"npi"`
}

// DefaultSelectors returns the selector set for the provider directory.
func DefaultSelectors() Selectors {
	return Selectors{
		Name:              ".provider-info h1",
		Specialty:         ".provider-info .specialty",
		WebsiteLink:       "a.visit-website",
		EmailLink:         "a[href^='mailto:']",
		PrimaryPhone:      "a.call-cta[href^='tel:']",
		InsuranceItems:    ".insurances-list li",
		EducationSections: ".description.loc-vc-mdschwrp",
		EducationSchool:   ".loc-vc-schl",
		EducationYear:     ".loc-vc-schlyr",
		QuickFactItems:    ".quickfacts-card li",
		LocationLines:     ".location-map .location-line",
		LocationName:      ".title.loc-vl-locna h3",
		LocationAddress:   ".address-first-line.loc-vl-locad",
		LocationCity:      ".loc-vl-loccty",
		LocationState:     ".loc-vl-locsta",
		LocationPhone:     ".phone a[href^='tel:']",
		Breadcrumb:        ".breadcrumbs li a",
		NPI:               "[data-npi]",
	}
}

var titleCaser = cases.Title(language.English)

// Extractor turns one rendered profile page into a provider.Fragment.
type Extractor struct {
	sel    Selectors
	logger *zap.Logger
}

// New creates an Extractor with the given selectors.
func New(sel Selectors, logger *zap.Logger) *Extractor {
	return &Extractor{sel: sel, logger: logger}
}

// Extract parses markup and fills every field it can find. The only error is
// unparseable markup; individual missing fields degrade silently to defaults.
func (e *Extractor) Extract(markup []byte) (provider.Fragment, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return provider.Fragment{}, fmt.Errorf("parse profile markup: %w", err)
	}

	var frag provider.Fragment
	e.extractName(doc, &frag)
	frag.Specialties = SplitSpecialties(doc.Find(e.sel.Specialty))
	e.extractCompany(doc, &frag)
	e.extractPhone(doc, &frag)
	frag.InsurancePlans = e.extractInsurance(doc)
	frag.Education = e.extractEducation(doc)
	e.extractQuickFacts(doc, &frag)
	frag.Locations = e.extractLocations(doc)
	e.extractNPI(doc, &frag)
	return frag, nil
}

func (e *Extractor) extractName(doc *goquery.Document, frag *provider.Fragment) {
	raw := strings.TrimSpace(doc.Find(e.sel.Name).First().Text())
	if raw == "" {
		e.logger.Debug("name node absent")
		return
	}
	parsed := ParseName(raw)
	frag.Title = parsed.Title
	frag.FullName = parsed.FullName
	frag.FirstName = parsed.FirstName
	frag.LastName = parsed.LastName
}

// SplitSpecialties collects text from every matched specialty node, splits
// each on commas (some pages encode several specialties in one field), trims,
// drops empties and exact duplicates.
func SplitSpecialties(nodes *goquery.Selection) []string {
	var out []string
	seen := make(map[string]struct{})
	nodes.Each(func(_ int, s *goquery.Selection) {
		for _, part := range strings.Split(s.Text(), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	})
	return out
}

func (e *Extractor) extractCompany(doc *goquery.Document, frag *provider.Fragment) {
	href, ok := doc.Find(e.sel.WebsiteLink).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		frag.Company = provider.IndependentPractice
	} else {
		frag.CompanyWebsite = strings.TrimSpace(href)
		frag.Company = CompanyFromWebsite(frag.CompanyWebsite)
	}

	if mail, ok := doc.Find(e.sel.EmailLink).First().Attr("href"); ok {
		addr := strings.TrimPrefix(mail, "mailto:")
		if i := strings.IndexByte(addr, '?'); i >= 0 {
			addr = addr[:i]
		}
		frag.CompanyEmail = strings.TrimSpace(addr)
	}
}

// CompanyFromWebsite derives an organization name from its website: the
// registered domain minus a leading "www.", cut at the first dot, with
// hyphens spaced and words title-cased.
func CompanyFromWebsite(website string) string {
	host := website
	if u, err := url.Parse(website); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if host == "" {
		return provider.IndependentPractice
	}
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return provider.IndependentPractice
	}
	return titleCaser.String(strings.ReplaceAll(label, "-", " "))
}

func (e *Extractor) extractPhone(doc *goquery.Document, frag *provider.Fragment) {
	cta := doc.Find(e.sel.PrimaryPhone).First()
	if cta.Length() > 0 {
		href, _ := cta.Attr("href")
		frag.Phone = phoneFromTelHref(href, cta.Text())
		return
	}
	loc := doc.Find(e.sel.LocationPhone).First()
	if loc.Length() > 0 {
		href, _ := loc.Attr("href")
		frag.Phone = phoneFromTelHref(href, loc.Text())
	}
}

func (e *Extractor) extractInsurance(doc *goquery.Document) []string {
	var plans []string
	doc.Find(e.sel.InsuranceItems).Each(func(_ int, s *goquery.Selection) {
		if plan := strings.TrimSpace(s.Text()); plan != "" {
			plans = append(plans, plan)
		}
	})
	return plans
}

func (e *Extractor) extractEducation(doc *goquery.Document) []provider.Education {
	var entries []provider.Education
	doc.Find(e.sel.EducationSections).Each(func(_ int, s *goquery.Selection) {
		school := strings.TrimSpace(s.Find(e.sel.EducationSchool).First().Text())
		year := strings.TrimSpace(s.Find(e.sel.EducationYear).First().Text())
		if school != "" && year != "" {
			entries = append(entries, provider.Education{School: school, Year: year})
		}
	})
	return entries
}

func (e *Extractor) extractQuickFacts(doc *goquery.Document, frag *provider.Fragment) {
	doc.Find(e.sel.QuickFactItems).Each(func(_ int, s *goquery.Selection) {
		fact := strings.TrimSpace(s.Text())
		lower := strings.ToLower(fact)
		switch {
		case strings.Contains(lower, "years of experience"):
			frag.YearsExperience = leadingNumber(fact)
		case strings.Contains(lower, "speaks"):
			frag.Languages = splitLanguages(fact)
		}
	})
}

func leadingNumber(fact string) string {
	fields := strings.Fields(fact)
	if len(fields) == 0 {
		return ""
	}
	lead := fields[0]
	for _, r := range lead {
		if !unicode.IsDigit(r) {
			return ""
		}
	}
	return lead
}

func splitLanguages(fact string) []string {
	cleaned := fact
	if i := strings.Index(strings.ToLower(fact), "speaks"); i >= 0 {
		cleaned = fact[:i] + fact[i+len("speaks"):]
	}
	var langs []string
	for _, part := range strings.Split(cleaned, ",") {
		if part = strings.TrimSpace(part); part != "" {
			langs = append(langs, part)
		}
	}
	return langs
}

func (e *Extractor) extractLocations(doc *goquery.Document) []provider.Location {
	fallbackState := e.breadcrumbState(doc)

	var locations []provider.Location
	doc.Find(e.sel.LocationLines).Each(func(_ int, line *goquery.Selection) {
		loc := provider.Location{
			Name:    strings.TrimSpace(line.Find(e.sel.LocationName).First().Text()),
			Address: strings.TrimSpace(line.Find(e.sel.LocationAddress).First().Text()),
			City:    strings.TrimSuffix(strings.TrimSpace(line.Find(e.sel.LocationCity).First().Text()), ","),
			State:   strings.TrimSpace(line.Find(e.sel.LocationState).First().Text()),
		}
		if loc.State == "" {
			loc.State = fallbackState
		}
		phoneNode := line.Find(e.sel.LocationPhone).First()
		if phoneNode.Length() > 0 {
			href, _ := phoneNode.Attr("href")
			loc.Phone = phoneFromTelHref(href, phoneNode.Text())
		}
		if !loc.Complete() {
			e.logger.Debug("dropping incomplete location",
				zap.String("name", loc.Name),
				zap.String("city", loc.City),
			)
			return
		}
		locations = append(locations, loc)
	})
	return locations
}

// breadcrumbState pulls a two-letter state code from the page breadcrumb, used
// when a location line omits its own state.
func (e *Extractor) breadcrumbState(doc *goquery.Document) string {
	state := ""
	doc.Find(e.sel.Breadcrumb).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) == 2 && text == strings.ToUpper(text) && state == "" {
			state = text
		}
	})
	return state
}

func (e *Extractor) extractNPI(doc *goquery.Document, frag *provider.Fragment) {
	node := doc.Find(e.sel.NPI).First()
	if npi, ok := node.Attr("data-npi"); ok {
		frag.NPI = strings.TrimSpace(npi)
		return
	}
	frag.NPI = strings.TrimSpace(node.Text())
}
