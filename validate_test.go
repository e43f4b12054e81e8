package strata

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSubtypeDisjoint(t *testing.T) {
	c, mock := newMockClient(t)
	ctx := context.Background()

	expectParentColumns(mock)

	def := c.Schema().DefForLabel("quiz")
	require.NoError(t, c.ValidateSubtype(ctx, def))

	// The passing result is cached; no second introspection query.
	require.NoError(t, c.ValidateSubtype(ctx, def))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateSubtypeOverlap(t *testing.T) {
	schema := NewSchema("assessments")
	schema.DiscriminatorColumn = "type_id"
	schema.Lookup = &LookupTable{Table: "assessment_types"}
	schema.MustRegister(&SubtypeDef{
		Label:      "quiz",
		Attributes: []string{"title", "passing_score", "type_id"},
	})
	c, mock := newMockClientWith(t, schema)
	ctx := context.Background()

	expectParentColumns(mock)

	err := c.ValidateSubtype(ctx, schema.DefForLabel("quiz"))
	require.Error(t, err)
	require.True(t, IsOverlappingColumns(err))
	var e *OverlappingColumnsError
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "quiz", e.Label())
	assert.Equal(t, []string{"title", "type_id"}, e.Columns())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateOverlapBlocksSave(t *testing.T) {
	schema := NewSchema("assessments")
	schema.DiscriminatorColumn = "type_id"
	schema.Lookup = &LookupTable{Table: "assessment_types"}
	schema.MustRegister(&SubtypeDef{
		Label:      "quiz",
		Attributes: []string{"title", "passing_score"},
	})
	c, mock := newMockClientWith(t, schema)
	ctx := context.Background()

	expectParentColumns(mock)

	m, err := c.New("quiz")
	require.NoError(t, err)
	m.Set("title", "Midterm").Set("passing_score", 80)

	saved, err := m.Save(ctx)
	require.Error(t, err)
	assert.False(t, saved)
	assert.True(t, IsOverlappingColumns(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateFailureIsNotCached(t *testing.T) {
	schema := NewSchema("assessments")
	schema.DiscriminatorColumn = "type_id"
	schema.Lookup = &LookupTable{Table: "assessment_types"}
	schema.MustRegister(&SubtypeDef{
		Label:      "quiz",
		Attributes: []string{"title"},
	})
	c, mock := newMockClientWith(t, schema)
	ctx := context.Background()

	def := schema.DefForLabel("quiz")

	expectParentColumns(mock)
	require.Error(t, c.ValidateSubtype(ctx, def))

	// After the schema is repaired the next validation reinspects.
	mock.ExpectQuery("SELECT name FROM pragma_table_info(?) ORDER BY cid").
		WithArgs("assessments").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("id").AddRow("type_id"))
	require.NoError(t, c.ValidateSubtype(ctx, def))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateNilDef(t *testing.T) {
	c, mock := newMockClient(t)

	require.NoError(t, c.ValidateSubtype(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearCaches(t *testing.T) {
	c, mock := newMockClient(t)
	ctx := context.Background()

	expectLabel(mock, 1, "quiz")
	expectParentColumns(mock)
	expectLabel(mock, 1, "quiz")
	expectParentColumns(mock)

	_, err := c.Resolver().ResolveLabel(ctx, int64(1))
	require.NoError(t, err)
	require.NoError(t, c.ValidateSubtype(ctx, c.Schema().DefForLabel("quiz")))

	require.NoError(t, c.ClearCaches(ctx))

	_, err = c.Resolver().ResolveLabel(ctx, int64(1))
	require.NoError(t, err)
	require.NoError(t, c.ValidateSubtype(ctx, c.Schema().DefForLabel("quiz")))
	require.NoError(t, mock.ExpectationsWereMet())
}
