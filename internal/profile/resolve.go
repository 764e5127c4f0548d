package profile

import (
	"sort"
	"strings"
)

type resolver func(p *Profile) any

// resolvers is the closed set of addressable profile paths.
var resolvers = map[string]resolver{
	"personal.first_name":         func(p *Profile) any { return p.Personal.FirstName },
	"personal.last_name":          func(p *Profile) any { return p.Personal.LastName },
	"personal.middle_name":        func(p *Profile) any { return p.Personal.MiddleName },
	"personal.preferred_name":     func(p *Profile) any { return p.Personal.PreferredName },
	"personal.full_name":          func(p *Profile) any { return p.Personal.FullName() },
	"personal.display_name":       func(p *Profile) any { return p.Personal.DisplayName() },
	"personal.date_of_birth":      func(p *Profile) any { return p.Personal.DateOfBirth },
	"personal.address_line1":      func(p *Profile) any { return p.Personal.AddressLine1 },
	"personal.address_line2":      func(p *Profile) any { return p.Personal.AddressLine2 },
	"personal.city":               func(p *Profile) any { return p.Personal.City },
	"personal.state":              func(p *Profile) any { return p.Personal.State },
	"personal.postal_code":        func(p *Profile) any { return p.Personal.PostalCode },
	"personal.country":            func(p *Profile) any { return p.Personal.Country },
	"personal.work_authorization": func(p *Profile) any { return p.Personal.WorkAuthorization },
	"personal.visa_type":          func(p *Profile) any { return p.Personal.VisaType },

	"contact.email":           func(p *Profile) any { return p.Contact.Email },
	"contact.phone":           func(p *Profile) any { return p.Contact.Phone },
	"contact.secondary_email": func(p *Profile) any { return p.Contact.SecondaryEmail },
	"contact.linkedin_url":    func(p *Profile) any { return p.Contact.LinkedInURL },
	"contact.github_url":      func(p *Profile) any { return p.Contact.GitHubURL },
	"contact.portfolio_url":   func(p *Profile) any { return p.Contact.PortfolioURL },
	"contact.website":         func(p *Profile) any { return p.Contact.Website },
	"contact.twitter_handle":  func(p *Profile) any { return p.Contact.TwitterHandle },

	"experience.total_years": func(p *Profile) any {
		if len(p.Experience) == 0 {
			return nil
		}
		return p.TotalExperienceYears()
	},
	"experience.current_company": func(p *Profile) any {
		if e, ok := p.CurrentPosition(); ok {
			return e.Company
		}
		return nil
	},
	"experience.current_position": func(p *Profile) any {
		if e, ok := p.CurrentPosition(); ok {
			return e.Position
		}
		return nil
	},

	"education.institution": func(p *Profile) any {
		if e, ok := p.LatestEducation(); ok {
			return e.Institution
		}
		return nil
	},
	"education.degree": func(p *Profile) any {
		if e, ok := p.LatestEducation(); ok {
			return e.Degree
		}
		return nil
	},
	"education.field_of_study": func(p *Profile) any {
		if e, ok := p.LatestEducation(); ok {
			return e.FieldOfStudy
		}
		return nil
	},
	"education.gpa": func(p *Profile) any {
		if e, ok := p.LatestEducation(); ok && e.GPA != nil {
			return *e.GPA
		}
		return nil
	},

	"skills.technical":      func(p *Profile) any { return p.Skills.Technical },
	"skills.soft":           func(p *Profile) any { return p.Skills.Soft },
	"skills.certifications": func(p *Profile) any { return p.Skills.Certifications },
	"skills.languages":      func(p *Profile) any { return p.Skills.Languages },

	"compensation.current_salary":     func(p *Profile) any { return derefInt(p.Compensation.CurrentSalary) },
	"compensation.desired_salary_min": func(p *Profile) any { return derefInt(p.Compensation.DesiredSalaryMin) },
	"compensation.desired_salary_max": func(p *Profile) any { return derefInt(p.Compensation.DesiredSalaryMax) },
	"compensation.salary_negotiable":  func(p *Profile) any { return derefBool(p.Compensation.Negotiable) },
	"compensation.hourly_rate": func(p *Profile) any {
		if p.Compensation.HourlyRate == nil {
			return nil
		}
		return *p.Compensation.HourlyRate
	},

	"preferences.desired_roles":       func(p *Profile) any { return p.Preferences.DesiredRoles },
	"preferences.remote_preference":   func(p *Profile) any { return p.Preferences.RemotePreference },
	"preferences.willing_to_relocate": func(p *Profile) any { return derefBool(p.Preferences.WillingToRelocate) },
	"preferences.preferred_locations": func(p *Profile) any { return p.Preferences.PreferredLocations },
	"preferences.start_date":          func(p *Profile) any { return p.Preferences.StartDate },
	"preferences.notice_period_weeks": func(p *Profile) any { return derefInt(p.Preferences.NoticePeriodWeeks) },

	"documents.resume":       func(p *Profile) any { return p.Documents.ResumePath },
	"documents.cover_letter": func(p *Profile) any { return p.Documents.CoverLetterPath },

	"summary_statement": func(p *Profile) any { return p.SummaryStatement },
}

// Resolve returns the value addressed by a dot-notation path. Unknown paths,
// a nil profile and empty values all resolve to (nil, false).
func Resolve(p *Profile, path string) (any, bool) {
	if p == nil {
		return nil, false
	}

	fn, ok := resolvers[strings.ToLower(strings.TrimSpace(path))]
	if !ok {
		return nil, false
	}

	v := fn(p)
	if isEmpty(v) {
		return nil, false
	}
	return v, true
}

// Known reports whether path is addressable.
func Known(path string) bool {
	_, ok := resolvers[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

// Paths lists every addressable path in lexical order.
func Paths() []string {
	paths := make([]string, 0, len(resolvers))
	for p := range resolvers {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	case map[string]string:
		return len(val) == 0
	default:
		return false
	}
}

func derefInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}
