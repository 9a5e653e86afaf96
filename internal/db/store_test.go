package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friday/internal/nlu"
	"friday/internal/skills"
)

func TestTaughtSkillGroupsByIntentInOrder(t *testing.T) {
	sk := TaughtSkill(
		[]Expression{
			{Intent: "stop", Pattern: "enough"},
			{Intent: "food.order", Pattern: "get me <<restaurant>>"},
			{Intent: "stop", Pattern: "hush"},
		},
		[]EntityValue{
			{Category: "restaurant", Value: "Subway"},
			{Category: "room", Value: "attic"},
			{Category: "restaurant", Value: "Wendys"},
		},
	)

	assert.Equal(t, TaughtSkillName, sk.Name)
	assert.Nil(t, sk.Handlers)
	assert.Equal(t, []skills.IntentSpec{
		{Intent: "stop", Patterns: []string{"enough", "hush"}},
		{Intent: "food.order", Patterns: []string{"get me <<restaurant>>"}},
	}, sk.Intents)
	assert.Equal(t, []nlu.Category{
		{Name: "restaurant", Values: []string{"Subway", "Wendys"}},
		{Name: "room", Values: []string{"attic"}},
	}, sk.Entities)
}

func TestTaughtSkillExtendsBuiltins(t *testing.T) {
	r := skills.NewRegistry()
	r.Register(skills.Builtin()...)
	r.Register(TaughtSkill([]Expression{{Intent: "stop", Pattern: "enough"}}, nil))

	catalog, err := r.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, "stop", catalog.Understander().Understand("that's enough").Intent)
}

func TestTaughtSkillEmpty(t *testing.T) {
	sk := TaughtSkill(nil, nil)
	assert.Empty(t, sk.Intents)
	assert.Empty(t, sk.Entities)
}

// Runs against a real database when FRIDAY_TEST_DB_DSN is set.
func TestStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("FRIDAY_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("FRIDAY_TEST_DB_DSN not set")
	}
	ctx := context.Background()
	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(ctx))

	e, err := s.AddExpression(ctx, "stop", "that will do")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.DeleteExpression(ctx, e.ID) })

	_, err = s.AddExpression(ctx, "stop", "that will do")
	assert.ErrorIs(t, err, ErrExpressionExists)

	_, err = s.AddExpression(ctx, "stop", "broken <<x>")
	assert.ErrorIs(t, err, nlu.ErrUnbalancedPlaceholder)

	list, err := s.ListExpressions(ctx)
	require.NoError(t, err)
	var ids []string
	for _, got := range list {
		ids = append(ids, got.ID)
	}
	assert.Contains(t, ids, e.ID)

	require.NoError(t, s.DeleteExpression(ctx, e.ID))
	assert.ErrorIs(t, s.DeleteExpression(ctx, e.ID), ErrExpressionNotFound)
}
