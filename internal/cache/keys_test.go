package cache

import (
	"context"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPICacheKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		params map[string]any
		name   string
		url    string
		want   string
	}{
		{name: "no params", url: "/users", params: nil, want: "api_/users"},
		{name: "empty params", url: "/users", params: map[string]any{}, want: "api_/users"},
		{name: "sorted", url: "/x", params: map[string]any{"b": 2, "a": 1}, want: "api_/x?a=1&b=2"},
		{name: "nil value", url: "/x", params: map[string]any{"q": nil}, want: "api_/x?q=null"},
		{name: "bool value", url: "/x", params: map[string]any{"active": true}, want: "api_/x?active=true"},
		{name: "slice value", url: "/x", params: map[string]any{"ids": []int{1, 2}}, want: "api_/x?ids=[1 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GenerateAPICacheKey(tt.url, tt.params))
		})
	}
}

func TestGenerateAPICacheKey_OrderIndependent(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("insertion order never changes the key", prop.ForAll(
		func(names []string, seed int64) bool {
			ordered := make(map[string]any, len(names))
			for i, n := range names {
				ordered[n] = i
			}

			shuffled := append([]string(nil), names...)
			rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})
			permuted := make(map[string]any, len(shuffled))
			for _, n := range shuffled {
				permuted[n] = ordered[n]
			}

			return GenerateAPICacheKey("/x", ordered) == GenerateAPICacheKey("/x", permuted)
		},
		gen.SliceOf(gen.AlphaString()),
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestSearchKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "search_go_programming", SearchKey("Go   Programming"))
	assert.Equal(t, "search__leading_tab", SearchKey("\tLeading\ttab"))
	assert.Equal(t, "search_", SearchKey(""))
	assert.Equal(t, SearchKey("Rust lessons"), SearchKey("rust\n lessons"))

	for _, sep := range []string{"\u00a0", "\v", "\u2003", "\u2028", "\u3000", "\ufeff", "\u00a0 \u202f"} {
		assert.Equal(t, "search_guitar_lessons", SearchKey("Guitar"+sep+"Lessons"), "%q", sep)
	}
}

func TestUserDataKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "user_42", UserDataKey("42"))
}

func TestConvenienceWrappers(t *testing.T) {
	t.Parallel()

	c, store, _ := newTestTiered(t)
	ctx := context.Background()

	t.Run("api responses", func(t *testing.T) {
		require.NoError(t, c.CacheAPIResponse(ctx, "/skills", map[string]any{"page": 1, "cat": "music"}, []string{"guitar"}))
		got, ok := c.GetCachedAPIResponse(ctx, "/skills", map[string]any{"cat": "music", "page": 1}, false).Get()
		require.True(t, ok)
		assert.JSONEq(t, `["guitar"]`, string(got))
	})

	t.Run("user data is persistent", func(t *testing.T) {
		require.NoError(t, c.CacheUserData(ctx, "7", map[string]string{"name": "lin"}))
		_, durable := store.raw(DefaultPrefix + "_user_7")
		assert.True(t, durable)

		c.memory.delete("user_7")
		assert.True(t, c.GetCachedUserData(ctx, "7").IsPresent())
	})

	t.Run("search results are memory only", func(t *testing.T) {
		require.NoError(t, c.CacheSearchResults(ctx, "Web  Design", []int{1, 2}))
		_, durable := store.raw(DefaultPrefix + "_search_web_design")
		assert.False(t, durable)

		got, ok := c.GetCachedSearchResults(ctx, "web design").Get()
		require.True(t, ok)
		assert.JSONEq(t, `[1,2]`, string(got))
	})
}
