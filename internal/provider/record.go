// Package provider defines the canonical provider record and the partial
// fragments produced by the listing and profile extraction stages.
package provider

import "time"

// IndependentPractice is the company sentinel used when a profile carries no
// organization website.
const IndependentPractice = "Independent Practice"

// Unknown marks registry-sourced fields whose lookup did not run or failed.
const Unknown = "unknown"

// Email source types. Confidence is assigned by source, not recomputed from
// the address itself.
const (
	EmailSourceCompany = "company"
	EmailSourceWork    = "work"
)

// Confidence tiers per email source.
const (
	ConfidenceCompanyEmail = 0.9
	ConfidenceWorkEmail    = 0.6
)

// Record is the unit of output: one canonical entity assembled from the
// listing card, the profile page and the registry lookup.
type Record struct {
	RunID           string        `json:"run_id,omitempty"`
	Title           string        `json:"title,omitempty"`
	FullName        string        `json:"full_name"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	Specialties     []string      `json:"specialties,omitempty"`
	Company         string        `json:"company"`
	CompanyWebsite  string        `json:"company_website,omitempty"`
	Phone           string        `json:"phone,omitempty"`
	Locations       []Location    `json:"locations,omitempty"`
	Emails          []EmailRecord `json:"emails,omitempty"`
	InsurancePlans  []string      `json:"insurance_plans,omitempty"`
	Education       []Education   `json:"education,omitempty"`
	YearsExperience string        `json:"years_experience,omitempty"`
	Languages       []string      `json:"languages,omitempty"`
	NPI             string        `json:"npi,omitempty"`
	Gender          string        `json:"gender"`
	// RegistryUpdatedAt is the registry's last-updated instant in RFC3339,
	// or the unknown sentinel when the lookup did not run or failed.
	RegistryUpdatedAt string `json:"registry_updated_at"`
}

// EmailRecord is one observed address with provenance. Multiple records may
// coexist per entity; they are never merged into a single "best" value.
type EmailRecord struct {
	Address     string    `json:"address"`
	SourceType  string    `json:"source_type"`
	SourceLabel string    `json:"source_label,omitempty"`
	ObservedAt  time.Time `json:"observed_at"`
	Confidence  float64   `json:"confidence"`
}

// Location is one practice site. Phone is optional; the other fields are
// required for the location to be retained at all.
type Location struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Phone   string `json:"phone,omitempty"`
}

// Complete reports whether the location meets the retention rule.
func (l Location) Complete() bool {
	return l.Name != "" && l.Address != "" && l.City != "" && l.State != ""
}

// Education is one school/year pair from the profile's education history.
type Education struct {
	School string `json:"school"`
	Year   string `json:"year"`
}

// Fragment is a partially filled record sourced from a single page. The
// listing card yields a shallow fragment; the profile page a deep one.
type Fragment struct {
	Title           string
	FullName        string
	FirstName       string
	LastName        string
	Specialties     []string
	Company         string
	CompanyWebsite  string
	CompanyEmail    string
	Phone           string
	Locations       []Location
	InsurancePlans  []string
	Education       []Education
	YearsExperience string
	Languages       []string
	NPI             string
	ProfileURL      string
}

// Clock returns the current time. Defined here so extraction and merge
// stages can be tested against a fixed instant.
type Clock interface {
	Now() time.Time
}
