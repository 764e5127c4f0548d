package matching

import (
	"errors"
	"math"
	"testing"

	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/profile"
)

func validationProfile() *profile.Profile {
	relocate := false
	gpa := 3.9
	return &profile.Profile{
		Personal: profile.Personal{FirstName: "Jane", City: "Austin"},
		Contact:  profile.Contact{Email: "jane@example.com", Phone: "+1 (512) 555-0100"},
		Experience: []profile.Experience{
			{Company: "Globex", Position: "Engineer", StartDate: "2019-01", EndDate: "2021-01"},
		},
		Education:   []profile.Education{{Institution: "Tech University", Degree: "MS", GPA: &gpa}},
		Preferences: profile.Preferences{WillingToRelocate: &relocate},
		Skills:      profile.Skills{Technical: []string{"Go", "SQL"}},
	}
}

func TestValidate(t *testing.T) {
	p := validationProfile()
	three := 3

	tests := []struct {
		name    string
		path    string
		field   form.FieldDescriptor
		wantErr bool
	}{
		{"email", "contact.email", form.FieldDescriptor{Type: form.FieldEmail}, false},
		{"not an email", "personal.first_name", form.FieldDescriptor{Type: form.FieldEmail}, true},
		{"phone", "contact.phone", form.FieldDescriptor{Type: form.FieldPhone}, false},
		{"short phone", "personal.city", form.FieldDescriptor{Type: form.FieldPhone}, true},
		{"number", "experience.total_years", form.FieldDescriptor{Type: form.FieldNumber}, false},
		{"gpa number", "education.gpa", form.FieldDescriptor{Type: form.FieldNumber}, false},
		{"not a number", "personal.first_name", form.FieldDescriptor{Type: form.FieldNumber}, true},
		{"option match", "preferences.willing_to_relocate", form.FieldDescriptor{Type: form.FieldRadio, Options: []string{"Yes", "No"}}, false},
		{"option prefixed by value", "preferences.willing_to_relocate", form.FieldDescriptor{Type: form.FieldSelect, Options: []string{"Yes", "Not sure"}}, true},
		{"no option match", "personal.first_name", form.FieldDescriptor{Type: form.FieldSelect, Options: []string{"Remote", "Onsite"}}, true},
		{"select without options", "personal.first_name", form.FieldDescriptor{Type: form.FieldSelect}, false},
		{"too long", "personal.first_name", form.FieldDescriptor{Type: form.FieldText, MaxLength: &three}, true},
		{"missing value", "personal.state", form.FieldDescriptor{Type: form.FieldText}, true},
		{"unknown path", "personal.shoe_size", form.FieldDescriptor{Type: form.FieldText}, true},
		{"list", "skills.technical", form.FieldDescriptor{Type: form.FieldTextarea}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(FieldMapping{ProfilePath: tt.path}, tt.field, p)
			if tt.wantErr {
				if !errors.Is(err, ErrIncompatibleValue) {
					t.Fatalf("expected ErrIncompatibleValue, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestSuggestValue(t *testing.T) {
	p := validationProfile()

	tests := []struct {
		name   string
		path   string
		field  form.FieldDescriptor
		want   string
		wantOK bool
	}{
		{"plain text", "personal.first_name", form.FieldDescriptor{Type: form.FieldText}, "Jane", true},
		{"boolean to option", "preferences.willing_to_relocate", form.FieldDescriptor{Type: form.FieldRadio, Options: []string{"yes", "no"}}, "no", true},
		{"closest option", "education.degree", form.FieldDescriptor{Type: form.FieldSelect, Options: []string{"BS", "MS", "PhD"}}, "MS", true},
		{"option containing value", "personal.city", form.FieldDescriptor{Type: form.FieldSelect, Options: []string{"Dallas, TX", "Austin, TX"}}, "Austin, TX", true},
		{"option only prefixed by value", "preferences.willing_to_relocate", form.FieldDescriptor{Type: form.FieldSelect, Options: []string{"Yes", "Not sure"}}, "", false},
		{"no fitting option", "personal.first_name", form.FieldDescriptor{Type: form.FieldSelect, Options: []string{"Remote", "Onsite"}}, "", false},
		{"list", "skills.technical", form.FieldDescriptor{Type: form.FieldText}, "Go, SQL", true},
		{"missing", "personal.state", form.FieldDescriptor{Type: form.FieldText}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SuggestValue(tt.field, p, tt.path)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("expected (%q, %v), got (%q, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  ConfidenceLevel
	}{
		{0, LevelLow},
		{40, LevelLow},
		{40.01, LevelMedium},
		{70, LevelMedium},
		{70.5, LevelHigh},
		{90, LevelHigh},
		{90.1, LevelVeryHigh},
		{100, LevelVeryHigh},
		{-5, LevelLow},
		{150, LevelVeryHigh},
		{math.NaN(), LevelLow},
	}

	for _, tt := range tests {
		got := LevelFor(tt.score)
		if got != tt.want {
			t.Fatalf("score %v: expected %s, got %s", tt.score, tt.want, got)
		}
		if again := LevelFor(ClampScore(tt.score)); again != got {
			t.Fatalf("score %v: level changed on recomputation: %s vs %s", tt.score, got, again)
		}
	}

	prev := LevelLow
	rank := map[ConfidenceLevel]int{LevelLow: 0, LevelMedium: 1, LevelHigh: 2, LevelVeryHigh: 3}
	for s := 0.0; s <= 100; s += 0.25 {
		got := LevelFor(s)
		if rank[got] < rank[prev] {
			t.Fatalf("level dropped from %s to %s at %v", prev, got, s)
		}
		prev = got
	}
}

func TestNewMappingClampsScore(t *testing.T) {
	field := form.FieldDescriptor{FieldID: "x", Label: "X", Type: form.FieldText}

	m := NewMapping(field, "personal.city", 140, SourceAI)
	if m.ConfidenceScore != 100 || m.ConfidenceLevel != LevelVeryHigh {
		t.Fatalf("unexpected mapping: %+v", m)
	}

	m = NewMapping(field, "personal.city", math.NaN(), SourceAI)
	if m.ConfidenceScore != 0 || m.ConfidenceLevel != LevelLow {
		t.Fatalf("unexpected mapping: %+v", m)
	}
}

func TestMappings(t *testing.T) {
	m := NewMappings(
		FieldMapping{FieldID: "a", ProfilePath: "personal.city", ConfidenceScore: 80, FieldLabel: "Town", MappingSource: SourceExact},
		FieldMapping{FieldID: "b", ProfilePath: "contact.email"},
	)
	m.Put(FieldMapping{FieldID: "b", ProfilePath: "contact.secondary_email"})

	if m.Len() != 2 {
		t.Fatalf("expected 2 mappings, got %d", m.Len())
	}
	if got, _ := m.Get("b"); got.ProfilePath != "contact.secondary_email" {
		t.Fatalf("expected last writer to win, got %+v", got)
	}

	corrected := m.Correct("a", "personal.state")
	if corrected.MappingSource != SourceUser || corrected.FieldLabel != "Town" {
		t.Fatalf("unexpected correction: %+v", corrected)
	}
	if len(corrected.Alternatives) != 1 || corrected.Alternatives[0].ProfilePath != "personal.city" {
		t.Fatalf("expected previous mapping as alternative, got %+v", corrected.Alternatives)
	}

	list := m.List()
	if list[0].FieldID != "a" || list[0].ProfilePath != "personal.state" || list[1].FieldID != "b" {
		t.Fatalf("unexpected order: %+v", list)
	}

	var zero Mappings
	zero.Put(FieldMapping{FieldID: "z"})
	if zero.Len() != 1 {
		t.Fatalf("expected zero value to be usable")
	}
}
