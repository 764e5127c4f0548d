package profile

import (
	"math"
	"strings"
	"time"
)

// dateLayouts are accepted for every date-valued profile attribute.
var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// now is replaced in tests.
var now = time.Now

type Profile struct {
	ID        string    `json:"profile_id"`
	Version   string    `json:"version,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	Personal     Personal     `json:"personal"`
	Contact      Contact      `json:"contact"`
	Experience   []Experience `json:"experience,omitempty"`
	Education    []Education  `json:"education,omitempty"`
	Skills       Skills       `json:"skills"`
	Compensation Compensation `json:"compensation"`
	Preferences  Preferences  `json:"job_preferences"`
	Documents    Documents    `json:"documents"`

	SummaryStatement string   `json:"summary_statement,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

type Personal struct {
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	MiddleName        string `json:"middle_name,omitempty"`
	PreferredName     string `json:"preferred_name,omitempty"`
	DateOfBirth       string `json:"date_of_birth,omitempty"`
	AddressLine1      string `json:"address_line1,omitempty"`
	AddressLine2      string `json:"address_line2,omitempty"`
	City              string `json:"city,omitempty"`
	State             string `json:"state,omitempty"`
	PostalCode        string `json:"postal_code,omitempty"`
	Country           string `json:"country,omitempty"`
	WorkAuthorization string `json:"work_authorization,omitempty"`
	VisaType          string `json:"visa_type,omitempty"`
}

// FullName joins first, middle and last names.
func (p Personal) FullName() string {
	return joinNonEmpty(" ", p.FirstName, p.MiddleName, p.LastName)
}

// DisplayName prefers the preferred name over the first name.
func (p Personal) DisplayName() string {
	first := p.PreferredName
	if strings.TrimSpace(first) == "" {
		first = p.FirstName
	}
	return joinNonEmpty(" ", first, p.LastName)
}

type Contact struct {
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	SecondaryEmail string `json:"secondary_email,omitempty"`
	LinkedInURL    string `json:"linkedin_url,omitempty"`
	GitHubURL      string `json:"github_url,omitempty"`
	PortfolioURL   string `json:"portfolio_url,omitempty"`
	Website        string `json:"website,omitempty"`
	TwitterHandle  string `json:"twitter_handle,omitempty"`
}

type Experience struct {
	Company        string   `json:"company"`
	Position       string   `json:"position"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date,omitempty"`
	Description    string   `json:"description,omitempty"`
	Achievements   []string `json:"key_achievements,omitempty"`
	Technologies   []string `json:"technologies,omitempty"`
	Location       string   `json:"location,omitempty"`
	EmploymentType string   `json:"employment_type,omitempty"`
	Current        bool     `json:"is_current,omitempty"`
}

// Months returns the length of the position in whole months. Positions
// without an end date run until now. Unparseable dates count as zero.
func (e Experience) Months() int {
	start, ok := parseDate(e.StartDate)
	if !ok {
		return 0
	}

	end := now()
	if !e.Current && strings.TrimSpace(e.EndDate) != "" {
		parsed, ok := parseDate(e.EndDate)
		if !ok {
			return 0
		}
		end = parsed
	}

	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if months < 0 {
		return 0
	}
	return months
}

type Education struct {
	Institution  string   `json:"institution"`
	Degree       string   `json:"degree"`
	FieldOfStudy string   `json:"field_of_study"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	GPA          *float64 `json:"gpa,omitempty"`
	Honors       string   `json:"honors,omitempty"`
	Location     string   `json:"location,omitempty"`
	Current      bool     `json:"is_current,omitempty"`
}

type Skills struct {
	Technical      []string          `json:"technical,omitempty"`
	Soft           []string          `json:"soft,omitempty"`
	Certifications []string          `json:"certifications,omitempty"`
	Languages      map[string]string `json:"languages,omitempty"`
}

type Compensation struct {
	CurrentSalary    *int     `json:"current_salary,omitempty"`
	DesiredSalaryMin *int     `json:"desired_salary_min,omitempty"`
	DesiredSalaryMax *int     `json:"desired_salary_max,omitempty"`
	Currency         string   `json:"currency,omitempty"`
	Negotiable       *bool    `json:"salary_negotiable,omitempty"`
	HourlyRate       *float64 `json:"hourly_rate,omitempty"`
}

type Preferences struct {
	DesiredRoles       []string `json:"desired_roles,omitempty"`
	Industries         []string `json:"industries,omitempty"`
	RemotePreference   string   `json:"remote_preference,omitempty"`
	WillingToRelocate  *bool    `json:"willing_to_relocate,omitempty"`
	PreferredLocations []string `json:"preferred_locations,omitempty"`
	StartDate          string   `json:"start_date_availability,omitempty"`
	NoticePeriodWeeks  *int     `json:"notice_period_weeks,omitempty"`
}

type Documents struct {
	ResumePath      string `json:"resume_path,omitempty"`
	CoverLetterPath string `json:"cover_letter_path,omitempty"`
}

// TotalExperienceYears sums all positions and rounds to one decimal.
func (p *Profile) TotalExperienceYears() float64 {
	months := 0
	for _, e := range p.Experience {
		months += e.Months()
	}
	return math.Round(float64(months)/12*10) / 10
}

// CurrentPosition returns the position marked current, falling back to the
// one without an end date.
func (p *Profile) CurrentPosition() (Experience, bool) {
	for _, e := range p.Experience {
		if e.Current {
			return e, true
		}
	}
	for _, e := range p.Experience {
		if strings.TrimSpace(e.EndDate) == "" {
			return e, true
		}
	}
	return Experience{}, false
}

// LatestEducation returns the entry with the latest end (or start) date.
func (p *Profile) LatestEducation() (Education, bool) {
	var (
		best     Education
		bestTime time.Time
		found    bool
	)
	for _, e := range p.Education {
		date := e.EndDate
		if strings.TrimSpace(date) == "" {
			date = e.StartDate
		}
		t, _ := parseDate(date)
		if !found || t.After(bestTime) {
			best, bestTime, found = e, t, true
		}
	}
	return best, found
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
