package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(n int, mutate func(i int, f *FieldDescriptor)) []FieldDescriptor {
	out := make([]FieldDescriptor, n)
	for i := range out {
		out[i] = FieldDescriptor{FieldID: "f", Type: FieldText}
		if mutate != nil {
			mutate(i, &out[i])
		}
	}
	return out
}

func TestScore(t *testing.T) {
	tests := []struct {
		name    string
		fields  []FieldDescriptor
		want    float64
		factors int
	}{
		{"empty form", nil, 1, 1},
		{"five fields", fields(5, nil), 1, 1},
		{"six fields", fields(6, nil), 2, 1},
		{"eleven fields", fields(11, nil), 4, 1},
		{"twenty one fields", fields(21, nil), 6, 1},
		{"file upload", fields(3, func(i int, f *FieldDescriptor) {
			if i == 0 {
				f.Type = FieldFile
			}
		}), 2, 2},
		{"mostly required", fields(4, func(i int, f *FieldDescriptor) { f.Required = i < 3 }), 2, 2},
		{"exactly 70 percent required", fields(10, func(i int, f *FieldDescriptor) { f.Required = i < 7 }), 2, 1},
		{"textareas capped", fields(8, func(_ int, f *FieldDescriptor) { f.Type = FieldTextarea }), 4, 2},
		{"everything clamps to ten", fields(30, func(i int, f *FieldDescriptor) {
			f.Required = true
			if i%2 == 0 {
				f.Type = FieldTextarea
			} else {
				f.Type = FieldFile
			}
		}), 10, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.fields)
			assert.InDelta(t, tt.want, got.Score, 1e-9)
			assert.Len(t, got.Factors, tt.factors)
		})
	}
}

func TestScoreIsMonotonic(t *testing.T) {
	prev := Score(nil).Score
	for n := 1; n <= 40; n++ {
		s := Score(fields(n, nil)).Score
		require.GreaterOrEqual(t, s, prev, "field count %d", n)
		prev = s
	}

	prev = Score(fields(10, nil)).Score
	for ta := 1; ta <= 10; ta++ {
		s := Score(fields(10, func(i int, f *FieldDescriptor) {
			if i < ta {
				f.Type = FieldTextarea
			}
		})).Score
		require.GreaterOrEqual(t, s, prev, "textareas %d", ta)
		require.LessOrEqual(t, s, MaxComplexity)
		prev = s
	}
}

func TestIssues(t *testing.T) {
	assert.Empty(t, Issues(fields(3, nil)))

	many := fields(12, func(i int, f *FieldDescriptor) {
		f.Required = true
		switch {
		case i == 0:
			f.Type = FieldFile
		case i < 4:
			f.Type = FieldTextarea
		}
	})

	issues := Issues(many)
	require.Len(t, issues, 3)
	assert.Equal(t, "file_upload_required", issues[0].Type)
	assert.Equal(t, SeverityHigh, issues[0].Severity)
	assert.Equal(t, "many_required_fields", issues[1].Type)
	assert.Equal(t, "Form has 12 required fields", issues[1].Message)
	assert.Equal(t, "multiple_essays", issues[2].Type)
	assert.Equal(t, "Form requires 3 text responses", issues[2].Message)
}
