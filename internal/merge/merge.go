// Package merge reconciles the listing-card fragment, the profile-page
// fragment and the registry result into one canonical provider record.
// Profile fields override listing fields on conflict; listing fields fill
// gaps the profile left empty. Emails accumulate per source and are never
// collapsed into a single best value.
package merge

import (
	"time"

	"github.com/healthdex/provider-harvest/internal/metrics"
	"github.com/healthdex/provider-harvest/internal/plans"
	"github.com/healthdex/provider-harvest/internal/provider"
	"github.com/healthdex/provider-harvest/internal/registry"
)

// Records builds the canonical record for one entity. observedAt stamps the
// email observations made during this merge.
func Records(listing, profile provider.Fragment, reg registry.Result, observedAt time.Time) provider.Record {
	rec := provider.Record{
		Title:           pick(profile.Title, listing.Title),
		FullName:        pick(profile.FullName, listing.FullName),
		FirstName:       pick(profile.FirstName, listing.FirstName),
		LastName:        pick(profile.LastName, listing.LastName),
		Specialties:     unionSpecialties(profile.Specialties, listing.Specialties),
		Company:         pick(profile.Company, listing.Company),
		CompanyWebsite:  pick(profile.CompanyWebsite, listing.CompanyWebsite),
		Phone:           pick(profile.Phone, listing.Phone),
		YearsExperience: pick(profile.YearsExperience, listing.YearsExperience),
		NPI:             pick(profile.NPI, listing.NPI),
		Gender:          reg.Gender,

		RegistryUpdatedAt: reg.LastUpdated,
	}
	if rec.Company == "" {
		rec.Company = provider.IndependentPractice
	}
	if rec.Gender == "" {
		rec.Gender = provider.Unknown
	}
	if rec.RegistryUpdatedAt == "" {
		rec.RegistryUpdatedAt = provider.Unknown
	}

	rec.Locations = profile.Locations
	if len(rec.Locations) == 0 {
		rec.Locations = listing.Locations
	}
	rec.Education = profile.Education
	if len(rec.Education) == 0 {
		rec.Education = listing.Education
	}
	rec.Languages = profile.Languages
	if len(rec.Languages) == 0 {
		rec.Languages = listing.Languages
	}

	rec.InsurancePlans = normalizePlans(profile.InsurancePlans, listing.InsurancePlans)
	rec.Emails = collectEmails(rec, profile, listing, reg, observedAt)
	return rec
}

func pick(profileVal, listingVal string) string {
	if profileVal != "" {
		return profileVal
	}
	return listingVal
}

// unionSpecialties keeps profile order first, then appends listing values not
// already present. No empties, no exact duplicates.
func unionSpecialties(profile, listing []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, set := range [][]string{profile, listing} {
		for _, s := range set {
			if s == "" {
				continue
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func normalizePlans(profile, listing []string) []string {
	raw := make([]string, 0, len(profile)+len(listing))
	raw = append(raw, profile...)
	raw = append(raw, listing...)
	if len(raw) == 0 {
		return nil
	}

	distinct := make(map[string]struct{}, len(raw))
	for _, label := range raw {
		distinct[label] = struct{}{}
	}

	normalized := plans.Normalize(raw)
	metrics.ObservePlanLabelsMerged(len(distinct) - len(normalized))
	return normalized
}

// collectEmails appends one EmailRecord per distinct source. Company-derived
// addresses carry the high tier, registry direct endpoints the medium tier.
func collectEmails(rec provider.Record, profile, listing provider.Fragment, reg registry.Result, observedAt time.Time) []provider.EmailRecord {
	var emails []provider.EmailRecord

	if addr := pick(profile.CompanyEmail, listing.CompanyEmail); addr != "" {
		emails = append(emails, provider.EmailRecord{
			Address:     addr,
			SourceType:  provider.EmailSourceCompany,
			SourceLabel: rec.Company,
			ObservedAt:  observedAt,
			Confidence:  provider.ConfidenceCompanyEmail,
		})
	}

	if reg.WorkEmail != provider.Unknown && reg.WorkEmail != "" {
		emails = append(emails, provider.EmailRecord{
			Address:     reg.WorkEmail,
			SourceType:  provider.EmailSourceWork,
			SourceLabel: "npi registry",
			ObservedAt:  observedAt,
			Confidence:  provider.ConfidenceWorkEmail,
		})
	}

	return emails
}
