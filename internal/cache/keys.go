package cache

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// whitespace matches the same characters as an ECMAScript \s: RE2's ASCII
// \s plus \v, the Unicode space separators, the line and paragraph
// separators and the byte order mark.
var whitespace = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)

// GenerateAPICacheKey derives the key for an API response: api_<url>, followed by
// ?k1=v1&k2=v2 with parameters sorted by name. Parameter order never changes the key.
func GenerateAPICacheKey(url string, params map[string]any) string {
	if len(params) == 0 {
		return "api_" + url
	}

	names := lo.Keys(params)
	slices.Sort(names)

	pairs := lo.Map(names, func(name string, _ int) string {
		return name + "=" + paramString(params[name])
	})
	return "api_" + url + "?" + strings.Join(pairs, "&")
}

// paramString renders one parameter value with fmt.Sprint. Scalars render as
// expected. Slices and maps render in Go syntax ("[1 2]", "map[a:1]"), so
// keys for non-scalar params only match keys built by this package.
func paramString(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

// UserDataKey returns the key for a user record.
func UserDataKey(userID string) string {
	return "user_" + userID
}

// SearchKey returns the key for a search query: lower-cased, whitespace runs collapsed to "_".
func SearchKey(query string) string {
	return "search_" + whitespace.ReplaceAllString(strings.ToLower(query), "_")
}

// CacheAPIResponse caches data under the key derived from url and params.
func (t *Tiered) CacheAPIResponse(ctx context.Context, url string, params map[string]any, data any, opts ...SetOption) error {
	return t.Set(ctx, GenerateAPICacheKey(url, params), data, opts...)
}

// GetCachedAPIResponse returns the response cached for url and params.
func (t *Tiered) GetCachedAPIResponse(ctx context.Context, url string, params map[string]any, persistent bool) mo.Option[[]byte] {
	return t.Get(ctx, GenerateAPICacheKey(url, params), persistent)
}

// CacheUserData caches a user record. User data is always persistent.
func (t *Tiered) CacheUserData(ctx context.Context, userID string, data any, opts ...SetOption) error {
	return t.Set(ctx, UserDataKey(userID), data, append(opts, Persistent())...)
}

// GetCachedUserData returns a cached user record, consulting the durable tier.
func (t *Tiered) GetCachedUserData(ctx context.Context, userID string) mo.Option[[]byte] {
	return t.Get(ctx, UserDataKey(userID), true)
}

// CacheSearchResults caches results for a normalized query.
func (t *Tiered) CacheSearchResults(ctx context.Context, query string, results any, opts ...SetOption) error {
	return t.Set(ctx, SearchKey(query), results, opts...)
}

// GetCachedSearchResults returns results cached for a normalized query from memory.
func (t *Tiered) GetCachedSearchResults(ctx context.Context, query string) mo.Option[[]byte] {
	return t.Get(ctx, SearchKey(query), false)
}
