package strata

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/strata/dialect"
	"github.com/syssam/strata/dialect/sql"
)

// newAssessmentSchema is the shared test fixture: an "assessments" parent
// with two subtypes, quizzes and surveys, discriminated through the
// "assessment_types" lookup table.
func newAssessmentSchema() *ParentSchema {
	s := NewSchema("assessments")
	s.DiscriminatorColumn = "type_id"
	s.Lookup = &LookupTable{Table: "assessment_types"}
	s.MustRegister(&SubtypeDef{
		Label:      "quiz",
		Attributes: []string{"passing_score", "time_limit"},
	})
	s.MustRegister(&SubtypeDef{
		Label:      "survey",
		Attributes: []string{"anonymous", "question_count"},
	})
	return s
}

func newMockClientWith(t *testing.T, schema *ParentSchema, opts ...ClientOption) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	return newMockClientDialect(t, dialect.SQLite, schema, opts...)
}

func newMockClientDialect(t *testing.T, d string, schema *ParentSchema, opts ...ClientOption) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewClient(sql.OpenDB(d, db), schema, opts...), mock
}

func newMockClient(t *testing.T, opts ...ClientOption) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	return newMockClientWith(t, newAssessmentSchema(), opts...)
}

// expectParentColumns serves the overlap-validation introspection query.
func expectParentColumns(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT name FROM pragma_table_info(?) ORDER BY cid").
		WithArgs("assessments").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("id").AddRow("type_id").AddRow("title"))
}

// expectTypeID serves a label-to-id lookup on the discriminator table.
func expectTypeID(mock sqlmock.Sqlmock, label string, id int64) {
	mock.ExpectQuery(`SELECT "id" FROM "assessment_types" WHERE "label" = ? LIMIT 1`).
		WithArgs(label).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
}

// expectLabel serves an id-to-label lookup on the discriminator table.
func expectLabel(mock sqlmock.Sqlmock, id int64, label string) {
	mock.ExpectQuery(`SELECT "label" FROM "assessment_types" WHERE "id" = ? LIMIT 1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"label"}).AddRow(label))
}

// persistedModel fabricates a model in loaded state, bypassing storage.
func persistedModel(c *Client, label string, id int64) *Model {
	m := c.NewModel(c.Schema().DefForLabel(label))
	m.Set(DefaultKeyColumn, id)
	m.exists = true
	m.syncOriginal()
	return m
}
