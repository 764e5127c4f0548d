package matching

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/profile"
	"github.com/spigell/formfill/internal/similarity"
)

const minPhoneDigits = 10

// Validate checks that the profile value behind mapping can be entered into
// field. Every failure wraps ErrIncompatibleValue.
func Validate(mapping FieldMapping, field form.FieldDescriptor, p *profile.Profile) error {
	v, ok := profile.Resolve(p, mapping.ProfilePath)
	if !ok {
		return fmt.Errorf("%w: no value found at profile path %s", ErrIncompatibleValue, mapping.ProfilePath)
	}
	value := FormatValue(v)

	switch field.Type {
	case form.FieldEmail:
		if !strings.Contains(value, "@") {
			return fmt.Errorf("%w: %q is not an email address", ErrIncompatibleValue, value)
		}
	case form.FieldPhone:
		if !isPhone(value) {
			return fmt.Errorf("%w: %q is not a phone number", ErrIncompatibleValue, value)
		}
	case form.FieldNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%w: %q is not numeric", ErrIncompatibleValue, value)
		}
	case form.FieldSelect, form.FieldRadio:
		if len(field.Options) == 0 {
			break
		}
		if _, ok := pickOption(value, field.Options); !ok {
			return fmt.Errorf("%w: %q matches none of the field options", ErrIncompatibleValue, value)
		}
	}

	if field.MaxLength != nil && utf8.RuneCountInString(value) > *field.MaxLength {
		return fmt.Errorf("%w: value exceeds field max length (%d)", ErrIncompatibleValue, *field.MaxLength)
	}

	return nil
}

// SuggestValue returns the text to enter into field for path. For fields
// with options it is the option closest to the profile value.
func SuggestValue(field form.FieldDescriptor, p *profile.Profile, path string) (string, bool) {
	v, ok := profile.Resolve(p, path)
	if !ok {
		return "", false
	}
	value := FormatValue(v)

	if !field.Type.HasOptions() || len(field.Options) == 0 {
		return value, true
	}

	return pickOption(value, field.Options)
}

// FormatValue renders a resolved profile value as form text. Lists are
// comma separated, booleans are Yes or No.
func FormatValue(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return strings.Join(val, ", ")
	case map[string]string:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return strings.Join(keys, ", ")
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

func isPhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == ' ', r == '-', r == '(', r == ')', r == '+', r == '.':
		default:
			return false
		}
	}
	return digits >= minPhoneDigits
}

// pickOption returns the option closest to value. Containment only counts
// for whole words, so "Austin" picks "Austin, TX" but "No" never picks
// "Not sure".
func pickOption(value string, options []string) (string, bool) {
	best, ok := similarity.BestOption(value, options, DefaultFuzzyThreshold)
	if !ok {
		return "", false
	}
	return best.Option, true
}
