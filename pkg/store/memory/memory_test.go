package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/store"
	"github.com/goliatone/go-fieldtree/pkg/testsupport"
)

func TestStoreSetValueByKey(t *testing.T) {
	fx := testsupport.NewFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.Store.SetValue(ctx, 1, testsupport.KeySubtitle, "hello"))
	require.NoError(t, fx.Store.SetValue(ctx, 1, testsupport.KeySessions, model.Rows{
		{Index: "0", Fields: map[string]any{testsupport.KeyTitle: "Opening"}},
	}))

	values, err := fx.Store.Values(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "hello", values["subtitle"])
	assert.Equal(t, []map[string]any{{"title": "Opening"}}, values["sessions"])

	groups, err := fx.Store.PopulatedGroups(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{testsupport.GroupArticle}, groups)
}

func TestStoreNilClears(t *testing.T) {
	fx := testsupport.NewFixture(t)
	ctx := context.Background()
	fx.Store.Seed(1, model.StoredValues{"subtitle": "old"})

	require.NoError(t, fx.Store.SetValue(ctx, 1, testsupport.KeySubtitle, nil))

	values, err := fx.Store.Values(ctx, 1)
	require.NoError(t, err)
	assert.NotContains(t, values, "subtitle")

	require.NoError(t, fx.Store.SetValue(ctx, 42, testsupport.KeySubtitle, nil), "clearing an unknown item is a no-op")
}

func TestStoreRejectsUnknownKeys(t *testing.T) {
	fx := testsupport.NewFixture(t)
	err := fx.Store.SetValue(context.Background(), 1, "field_nope", "x")
	assert.True(t, errors.Is(err, store.ErrUnknownField), "got %v", err)
}

func TestStoreValuesAreSnapshots(t *testing.T) {
	fx := testsupport.NewFixture(t)
	fx.Store.Seed(1, model.StoredValues{"subtitle": "a"})

	values, err := fx.Store.Values(context.Background(), 1)
	require.NoError(t, err)
	values["subtitle"] = "mutated"

	again, err := fx.Store.Values(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "a", again["subtitle"])
}

func TestContentNotFound(t *testing.T) {
	fx := testsupport.NewFixture(t)
	fx.AddPosts(5)

	item, err := fx.Content.Item(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Post 5", item.Title)

	_, err = fx.Content.Item(context.Background(), 6)
	assert.ErrorIs(t, err, store.ErrItemNotFound)
	_, err = fx.Content.Term(context.Background(), 99)
	assert.ErrorIs(t, err, store.ErrItemNotFound)
}
