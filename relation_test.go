package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasMany(t *testing.T) {
	c, _ := newMockClient(t)

	m := persistedModel(c, "quiz", 7)
	query, args := m.HasMany("questions").Query()
	assert.Equal(t, `SELECT questions.* FROM "questions" WHERE "questions"."quiz_id" = ?`, query)
	assert.Equal(t, []any{int64(7)}, args)
}

func TestHasManyCustomForeignKey(t *testing.T) {
	c, _ := newMockClient(t)

	m := persistedModel(c, "quiz", 7)
	query, _ := m.HasMany("questions", "owner_id").Query()
	assert.Contains(t, query, `"questions"."owner_id" = ?`)
}

func TestHasManyFromBaseModel(t *testing.T) {
	c, _ := newMockClient(t)

	m := c.NewModel(nil)
	m.Set("id", int64(7))
	m.exists = true

	query, _ := m.HasMany("attempts").Query()
	assert.Contains(t, query, `"attempts"."assessment_id" = ?`)
}

func TestHasOne(t *testing.T) {
	c, _ := newMockClient(t)

	m := persistedModel(c, "quiz", 7)
	query, args := m.HasOne("answer_keys").Query()
	assert.Equal(t, `SELECT answer_keys.* FROM "answer_keys" WHERE "answer_keys"."quiz_id" = ? LIMIT 1`, query)
	assert.Equal(t, []any{int64(7)}, args)
}

func TestBelongsTo(t *testing.T) {
	c, _ := newMockClient(t)

	m := persistedModel(c, "quiz", 7)
	m.Set("course_id", int64(3))

	query, args := m.BelongsTo("courses").Query()
	assert.Equal(t, `SELECT courses.* FROM "courses" WHERE "courses"."id" = ? LIMIT 1`, query)
	assert.Equal(t, []any{int64(3)}, args)
}

func TestBelongsToCustomForeignKey(t *testing.T) {
	c, _ := newMockClient(t)

	m := persistedModel(c, "quiz", 7)
	m.Set("owner", int64(5))

	_, args := m.BelongsTo("courses", "owner").Query()
	assert.Equal(t, []any{int64(5)}, args)
}

func TestManyToMany(t *testing.T) {
	c, _ := newMockClient(t)

	m := persistedModel(c, "quiz", 7)
	query, args := m.ManyToMany("tags").Query()
	assert.Equal(t,
		`SELECT tags.* FROM "tags" JOIN "quiz_tag" ON "tags"."id" = "quiz_tag"."tag_id" WHERE "quiz_tag"."quiz_id" = ?`,
		query)
	assert.Equal(t, []any{int64(7)}, args)
}

func TestManyToManyCustomPivot(t *testing.T) {
	c, _ := newMockClient(t)

	m := persistedModel(c, "quiz", 7)
	query, _ := m.ManyToMany("tags", "quiz_taggings").Query()
	assert.Contains(t, query, `JOIN "quiz_taggings"`)
}

func TestDefaultPivotIsAlphabetical(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "quiz_tag", defaultPivot("quiz", "tag"))
	assert.Equal(t, "quiz_tag", defaultPivot("tag", "quiz"))
}

func TestRelationName(t *testing.T) {
	c, _ := newMockClient(t)

	quiz := persistedModel(c, "quiz", 7)
	require.Equal(t, "quiz", quiz.relationName())
	assert.Equal(t, "quiz_id", quiz.foreignKey())

	base := c.NewModel(nil)
	assert.Equal(t, "assessment", base.relationName())
	assert.Equal(t, "assessment_id", base.foreignKey())
}
