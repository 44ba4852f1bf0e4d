package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	base := Product{ID: "p1", Title: "Tomato soup", PriceCents: 650}

	t.Run("plain", func(t *testing.T) {
		d, err := Resolve(base, nil, json.RawMessage("null"))
		require.NoError(t, err)
		assert.Equal(t, KindPlain, d.Kind())
		assert.Equal(t, base, d.Base())
	})

	t.Run("recipe", func(t *testing.T) {
		d, err := Resolve(base, json.RawMessage(`{"ingredients":["tomato","basil"],"servings":2}`), nil)
		require.NoError(t, err)
		require.Equal(t, KindRecipe, d.Kind())
		r := d.(WithRecipe)
		assert.Equal(t, []string{"tomato", "basil"}, r.Recipe.Ingredients)
		assert.Equal(t, 2, r.Recipe.Servings)
	})

	t.Run("growing log", func(t *testing.T) {
		d, err := Resolve(base, nil, json.RawMessage(`{"method":"greenhouse","entries":[{"date":"2024-05-01","stage":"sown"}]}`))
		require.NoError(t, err)
		require.Equal(t, KindGrowingLog, d.Kind())
		assert.Len(t, d.(WithGrowingLog).GrowingLog.Entries, 1)
	})

	t.Run("both is rejected", func(t *testing.T) {
		_, err := Resolve(base, json.RawMessage(`{}`), json.RawMessage(`{}`))
		assert.ErrorIs(t, err, ErrAmbiguousDetail)
	})

	t.Run("broken document", func(t *testing.T) {
		_, err := Resolve(base, json.RawMessage(`{"servings":"two"}`), nil)
		assert.Error(t, err)
	})
}

func TestWrap(t *testing.T) {
	d := WithRecipe{Product: Product{ID: "p1"}, Recipe: Recipe{Servings: 4}}
	out, err := json.Marshal(Wrap(d))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "recipe", got["kind"])
	detail := got["detail"].(map[string]any)
	assert.Equal(t, "p1", detail["id"])
	assert.Equal(t, float64(4), detail["recipe"].(map[string]any)["servings"])
}
