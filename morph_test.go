package strata

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMorphResolvesSubtype(t *testing.T) {
	c, mock := newMockClient(t)
	ctx := context.Background()

	expectLabel(mock, 1, "quiz")

	m, err := c.Morph(ctx, map[string]any{
		"id":      int64(1),
		"type_id": int64(1),
		"title":   "Midterm",
	})
	require.NoError(t, err)
	require.NotNil(t, m.Def())
	assert.Equal(t, "quiz", m.Def().Label)
	assert.Equal(t, "Midterm", m.GetString("title"))
	assert.True(t, m.Exists())
	assert.False(t, m.SubtypeLoaded())
	assert.False(t, m.IsDirty())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMorphCachesResolution(t *testing.T) {
	c, mock := newMockClient(t)
	ctx := context.Background()

	expectLabel(mock, 1, "quiz")

	for i := 0; i < 3; i++ {
		m, err := c.Morph(ctx, map[string]any{"id": int64(i + 1), "type_id": int64(1)})
		require.NoError(t, err)
		require.NotNil(t, m.Def())
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMorphUnknownDiscriminatorFallsBack(t *testing.T) {
	c, mock := newMockClient(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT "label" FROM "assessment_types" WHERE "id" = ? LIMIT 1`).
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"label"}))

	m, err := c.Morph(ctx, map[string]any{
		"id":      int64(4),
		"type_id": int64(99),
		"title":   "Orphan",
	})
	require.NoError(t, err)
	assert.Nil(t, m.Def())
	assert.Equal(t, "Orphan", m.GetString("title"))
	assert.True(t, m.Exists())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMorphUnmappedLabelFallsBack(t *testing.T) {
	c, mock := newMockClient(t)
	ctx := context.Background()

	expectLabel(mock, 9, "exam")

	m, err := c.Morph(ctx, map[string]any{"id": int64(4), "type_id": int64(9)})
	require.NoError(t, err)
	assert.Nil(t, m.Def())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMorphNilDiscriminator(t *testing.T) {
	c, mock := newMockClient(t)

	m, err := c.Morph(context.Background(), map[string]any{"id": int64(4), "type_id": nil})
	require.NoError(t, err)
	assert.Nil(t, m.Def())
	assert.True(t, m.Exists())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMorphWithoutLookupTableFails(t *testing.T) {
	// A row carrying a discriminator value cannot be resolved without a
	// lookup table; that is a configuration error, not a fallback.
	schema := NewSchema("assessments")
	schema.DiscriminatorColumn = "type_id"
	c, mock := newMockClientWith(t, schema)

	_, err := c.Morph(context.Background(), map[string]any{"id": int64(4), "type_id": int64(1)})
	require.Error(t, err)
	assert.True(t, IsMissingLookupTable(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMorphPropagatesQueryError(t *testing.T) {
	c, mock := newMockClient(t)

	boom := errors.New("connection reset")
	mock.ExpectQuery(`SELECT "label" FROM "assessment_types" WHERE "id" = ? LIMIT 1`).
		WithArgs(int64(1)).
		WillReturnError(boom)

	_, err := c.Morph(context.Background(), map[string]any{"id": int64(1), "type_id": int64(1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMorphAppliesCasts(t *testing.T) {
	schema := newAssessmentSchema()
	schema.Casts = map[string]Cast{"title": CastString}
	c, mock := newMockClientWith(t, schema)
	ctx := context.Background()

	expectLabel(mock, 1, "quiz")

	m, err := c.Morph(ctx, map[string]any{
		"id":      int64(1),
		"type_id": int64(1),
		"title":   []byte("Midterm"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Midterm", m.Get("title"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(7), normalizeKey(7))
	assert.Equal(t, int64(7), normalizeKey(int32(7)))
	assert.Equal(t, int64(7), normalizeKey(uint(7)))
	assert.Equal(t, int64(7), normalizeKey(uint64(7)))
	assert.Equal(t, "abc", normalizeKey([]byte("abc")))
	assert.Equal(t, "doc-1", normalizeKey("doc-1"))
	assert.Nil(t, normalizeKey(nil))
}
