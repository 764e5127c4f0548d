package feedback

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/matching"
)

func openMemory(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(Config{DB: InMemory}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRecordAndList(t *testing.T) {
	r := openMemory(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	ctx := context.Background()

	first, err := r.Record(ctx, Correction{FormID: "form_a", FieldID: "email", CorrectedPath: "contact.email", PreviousPath: "personal.full_name", PreviousSource: matching.SourceFuzzy})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, base.Add(time.Second), first.CreatedAt)

	_, err = r.Record(ctx, Correction{FormID: "form_b", FieldID: "city", CorrectedPath: "personal.city"})
	require.NoError(t, err)
	_, err = r.Record(ctx, Correction{FormID: "form_a", FieldID: "phone", CorrectedPath: "contact.phone"})
	require.NoError(t, err)

	formA, err := r.List(ctx, "form_a")
	require.NoError(t, err)
	require.Len(t, formA, 2)
	assert.Equal(t, first, formA[0])
	assert.Equal(t, "phone", formA[1].FieldID)

	all, err := r.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRecordRejectsInvalidCorrections(t *testing.T) {
	r := openMemory(t)
	ctx := context.Background()

	_, err := r.Record(ctx, Correction{FormID: "f", CorrectedPath: "contact.email"})
	assert.Error(t, err)

	_, err = r.Record(ctx, Correction{FormID: "f", FieldID: "x", CorrectedPath: "contact.fax"})
	assert.ErrorContains(t, err, "unknown profile path")

	list, err := r.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecorderPersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "feedback.db")
	ctx := context.Background()

	r, err := Open(Config{DB: path}, nil)
	require.NoError(t, err)
	_, err = r.Record(ctx, Correction{FormID: "f", FieldID: "email", CorrectedPath: "contact.email"})
	require.NoError(t, err)
	require.NoError(t, r.Close())

	reopened, err := Open(Config{DB: path}, nil)
	require.NoError(t, err)
	defer reopened.Close()

	list, err := reopened.List(ctx, "f")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "contact.email", list[0].CorrectedPath)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{DB: "  "}, nil)
	assert.Error(t, err)

	var nilRecorder *Recorder
	_, err = nilRecorder.Record(context.Background(), Correction{})
	assert.Error(t, err)
	assert.NoError(t, nilRecorder.Close())
}

func TestFromMappings(t *testing.T) {
	previous := matching.NewMapping(form.FieldDescriptor{FieldID: "loc", Label: "Location"}, "personal.country", 65, matching.SourceFuzzy)
	corrected := matching.FieldMapping{FieldID: "loc", ProfilePath: "personal.city"}

	c := FromMappings("form_x", &previous, corrected)
	assert.Equal(t, Correction{
		FormID:         "form_x",
		FieldID:        "loc",
		FieldLabel:     "Location",
		PreviousPath:   "personal.country",
		PreviousSource: matching.SourceFuzzy,
		CorrectedPath:  "personal.city",
	}, c)

	unmapped := FromMappings("form_x", nil, corrected)
	assert.Empty(t, unmapped.PreviousPath)
}
