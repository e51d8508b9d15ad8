package sources

import (
	"encoding/json"
	"testing"

	"askora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Domain helpers
// ==========================

func TestDomain(t *testing.T) {
	tests := []struct {
		link     string
		expected string
	}{
		{"https://www.Kooora.com/match?id=1", "kooora.com"},
		{"http://ar.wikipedia.org/wiki/x", "ar.wikipedia.org"},
		{"not a url", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.expected, Domain(tt.link))
		})
	}
}

func TestMatchesDomain(t *testing.T) {
	assert.True(t, MatchesDomain("ar.wikipedia.org", PreferredDomains))
	assert.True(t, MatchesDomain("travel.state.gov", PreferredDomains))
	assert.True(t, MatchesDomain("moi.gov.sa", PreferredDomains))
	assert.False(t, MatchesDomain("notwikipedia.org", PreferredDomains))
	assert.False(t, MatchesDomain("", PreferredDomains))
}

func TestIsBlockedAndIntentDomain(t *testing.T) {
	assert.True(t, IsBlocked("https://m.facebook.com/post/1"))
	assert.True(t, IsBlocked("https://www.youtube.com/watch?v=1"))
	assert.False(t, IsBlocked("https://www.bbc.com/news"))

	assert.True(t, IsIntentDomain("https://www.yallakora.com/match-center", models.IntentSchedule))
	assert.False(t, IsIntentDomain("https://www.yallakora.com/match-center", models.IntentNews))
	assert.False(t, IsIntentDomain("https://example.com", "unknown"))
}

func TestIsListingPage(t *testing.T) {
	tests := []struct {
		link     string
		expected bool
	}{
		{"https://example.com/search?q=x", true},
		{"https://example.com/tag/football", true},
		{"https://example.com/category/sports/", true},
		{"https://example.com/?q=today", true},
		{"https://example.com/news/2024/match-report", false},
		{"https://example.com/", false},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsListingPage(tt.link))
		})
	}
}

func TestValidLink(t *testing.T) {
	assert.Equal(t, "https://a.com/x", ValidLink(" https://a.com/x "))
	assert.Empty(t, ValidLink("javascript:alert(1)"))
	assert.Empty(t, ValidLink("/relative/path"))
	assert.Empty(t, ValidLink("ftp://a.com/file"))
}

func TestCanonicalLink(t *testing.T) {
	a := CanonicalLink("https://www.Example.com/page/?utm_source=x&id=2#top")
	b := CanonicalLink("http://example.com/page?id=2")
	assert.Equal(t, a, b)
	assert.Equal(t, "example.com/page?id=2", a)
}

// ==========================
// Coerce
// ==========================

func TestCoerce_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		raw      interface{}
		expected int
	}{
		{"nil", nil, 0},
		{"number", 42, 0},
		{"plain string", "some text", 1},
		{"wrapped sources", map[string]interface{}{"sources": []interface{}{
			map[string]interface{}{"title": "A", "url": "https://a.com"},
			map[string]interface{}{"name": "B", "description": "text"},
		}}, 2},
		{"wrapped items", map[string]interface{}{"items": []interface{}{
			map[string]interface{}{"title": "A", "snippet": "s"},
		}}, 1},
		{"unrelated object", map[string]interface{}{"foo": "bar"}, 0},
		{"raw results", []models.RawResult{{Title: "t", Link: "https://a.com", Snippet: "s"}}, 1},
		{"drops empty items", []interface{}{map[string]interface{}{}, nil, 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Coerce(tt.raw)
			require.NotNil(t, out)
			assert.Len(t, out, tt.expected)
		})
	}
}

func TestCoerce_CleansFields(t *testing.T) {
	out := Coerce([]interface{}{
		map[string]interface{}{
			"title":   "<b>Riyadh</b>",
			"link":    "javascript:void(0)",
			"snippet": "Capital &amp; largest   city",
		},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "Riyadh", out[0].Title)
	assert.Empty(t, out[0].Link)
	assert.Equal(t, "Capital & largest city", out[0].Content)
}

func TestCoerce_RawJSON(t *testing.T) {
	raw := json.RawMessage(`{"results":[{"title":"x","link":"https://x.com","content":"y"}]}`)
	out := Coerce(raw)
	require.Len(t, out, 1)
	assert.Equal(t, "https://x.com", out[0].Link)
}

func TestCoerce_HTMLSnippetFallback(t *testing.T) {
	out := Coerce([]models.RawResult{{Title: "t", HTMLSnippet: "<i>hello</i>"}})
	require.Len(t, out, 1)
	assert.Equal(t, "hello", out[0].Content)
}
