package profile

// Summary is the flattened view of a profile handed to external matchers:
// every resolvable path with its value.
type Summary map[string]any

// Summarize flattens p. Paths listed in omit are left out.
func Summarize(p *Profile, omit ...string) Summary {
	skip := make(map[string]struct{}, len(omit))
	for _, o := range omit {
		skip[o] = struct{}{}
	}

	s := make(Summary)
	for _, path := range Paths() {
		if _, ok := skip[path]; ok {
			continue
		}
		if v, ok := Resolve(p, path); ok {
			s[path] = v
		}
	}
	return s
}
