// internal/workers/ai-conversation/rank-sources/handler_test.go
package ranksources

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"askora/internal/common/logger"
	"askora/internal/common/sources"
	"askora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

func raw(title, link, snippet string) models.RawResult {
	return models.RawResult{Title: title, Link: link, Snippet: snippet}
}

func assertSourceInvariant(t *testing.T, out []models.Source) {
	t.Helper()
	for _, s := range out {
		assert.NotContains(t, s.Content, "<")
		assert.NotContains(t, s.Content, "  ")
		assert.LessOrEqual(t, len([]rune(s.Title)), 140)
		assert.LessOrEqual(t, len([]rune(s.Content)), 400)
		if s.Link != "" {
			assert.Equal(t, s.Link, sources.ValidLink(s.Link))
		}
	}
}

// ==========================
// Filtering Tests
// ==========================

func TestRank_DropsBlockedAndListingPages(t *testing.T) {
	h := newTestHandler(t)

	out := h.Rank([]models.RawResult{
		raw("Facebook post", "https://www.facebook.com/x/posts/1", "some text here"),
		raw("Video", "https://youtu.be/abc", "video text"),
		raw("Search page", "https://example.com/search?q=riyadh", "results"),
		raw("Tag page", "https://example.com/tag/riyadh", "tagged"),
		raw("Riyadh", "https://example.com/riyadh", "Riyadh is the capital"),
	}, models.IntentWhere, 0)

	require.Len(t, out, 1)
	assert.Equal(t, "Riyadh", out[0].Title)
}

func TestRank_DropsEmptyItemsAndInvalidLinks(t *testing.T) {
	h := newTestHandler(t)

	out := h.Rank([]interface{}{
		map[string]interface{}{"title": "", "content": "", "link": "https://a.com"},
		map[string]interface{}{"title": "<b>Bold</b>", "link": "mailto:x@y.z", "snippet": "text &amp; more"},
		nil,
		17,
	}, models.IntentGeneral, 0)

	require.Len(t, out, 1)
	assert.Equal(t, "Bold", out[0].Title)
	assert.Empty(t, out[0].Link)
	assert.Equal(t, "text & more", out[0].Content)
}

func TestRank_UnusableInputIsEmptyNotNil(t *testing.T) {
	h := newTestHandler(t)

	for _, in := range []interface{}{nil, 42, map[string]interface{}{"foo": 1}, []interface{}{}} {
		out := h.Rank(in, models.IntentGeneral, 5)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	}
}

// ==========================
// Scoring Tests
// ==========================

func TestRank_PreferredAndIntentDomainsFirst(t *testing.T) {
	h := newTestHandler(t)
	long := strings.Repeat("word ", 40)

	out := h.Rank([]models.RawResult{
		raw("Blog", "https://someblog.net/p/1", long),
		raw("Wikipedia", "https://ar.wikipedia.org/wiki/Riyadh", "short"),
		raw("Gov", "https://www.state.gov/riyadh", "short"),
	}, models.IntentWhere, 0)

	require.Len(t, out, 3)
	assert.Equal(t, "Wikipedia", out[0].Title)
	assert.Equal(t, "Gov", out[1].Title)
	assert.Equal(t, "Blog", out[2].Title)
}

func TestRank_ScheduleIntentPrefersSportsDomains(t *testing.T) {
	h := newTestHandler(t)

	out := h.Rank([]models.RawResult{
		raw("Generic", "https://news.example.com/today", "مباريات اليوم"),
		raw("Kooora", "https://www.kooora.com/?m=1", "جدول مباريات اليوم"),
	}, models.IntentSchedule, 0)

	require.Len(t, out, 2)
	assert.Equal(t, "Kooora", out[0].Title)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		source   models.Source
		intent   string
		expected int
	}{
		{"title only", models.Source{Title: "t"}, models.IntentGeneral, 1},
		{"title and content", models.Source{Title: "t", Content: "c"}, models.IntentGeneral, 2},
		{"long content", models.Source{Title: "t", Content: strings.Repeat("x", 121)}, models.IntentGeneral, 4},
		{"preferred", models.Source{Title: "t", Link: "https://britannica.com/a"}, models.IntentGeneral, 11},
		{"intent domain", models.Source{Title: "t", Link: "https://www.reuters.com/a"}, models.IntentNews, 9},
		{"intent domain wrong intent", models.Source{Title: "t", Link: "https://www.reuters.com/a"}, models.IntentWhere, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, score(tt.source, tt.intent))
		})
	}
}

// ==========================
// Dedup / Limit Tests
// ==========================

func TestRank_DeduplicatesByCanonicalLinkAndContent(t *testing.T) {
	h := newTestHandler(t)

	out := h.Rank([]models.RawResult{
		raw("A", "https://www.example.com/page?utm_source=x", "first text"),
		raw("A again", "http://example.com/page/", "different text"),
		raw("B", "https://other.com/b", "Same Snippet"),
		raw("B copy", "https://third.com/b", "same   snippet"),
		raw("Linkless", "", "unique words"),
		raw("Linkless dup", "", "Unique Words"),
	}, models.IntentGeneral, 0)

	titles := make([]string, 0, len(out))
	for _, s := range out {
		titles = append(titles, s.Title)
	}
	assert.ElementsMatch(t, []string{"A", "B", "Linkless"}, titles)
}

func TestRank_CapsPerDomain(t *testing.T) {
	h := newTestHandler(t)

	results := make([]models.RawResult, 0, 5)
	for i := 0; i < 5; i++ {
		results = append(results, raw(fmt.Sprintf("t%d", i), fmt.Sprintf("https://same.com/p%d", i), fmt.Sprintf("content %d", i)))
	}
	results = append(results, raw("other", "https://other.com/x", "other content"))

	out := h.Rank(results, models.IntentGeneral, 0)
	assert.Len(t, out, 3)
}

func TestRank_LimitsAndClips(t *testing.T) {
	h := newTestHandler(t)

	results := make([]models.RawResult, 0, 20)
	for i := 0; i < 20; i++ {
		results = append(results, raw(
			strings.Repeat("عنوان ", 40),
			fmt.Sprintf("https://site%d.com/x", i),
			strings.Repeat(fmt.Sprintf("كلمة%d ", i), 120),
		))
	}

	assert.Len(t, h.Rank(results, models.IntentGeneral, 0), 8)
	assert.Len(t, h.Rank(results, models.IntentGeneral, 3), 3)
	out := h.Rank(results, models.IntentGeneral, 50)
	assert.Len(t, out, 10)

	assertSourceInvariant(t, out)
	assert.True(t, strings.HasSuffix(out[0].Title, "…"))
	assert.True(t, strings.HasSuffix(out[0].Content, "…"))
}

// ==========================
// Fallback Tests
// ==========================

func TestRank_ScheduleFallbackInjected(t *testing.T) {
	h := newTestHandler(t)

	out := h.Rank([]models.RawResult{
		raw("Generic", "https://example.com/a", "text"),
	}, models.IntentSchedule, 0)

	require.Len(t, out, 2)
	assert.Equal(t, sources.FallbackLinks[models.IntentSchedule].Link, out[0].Link)

	empty := h.Rank(nil, models.IntentSchedule, 0)
	require.Len(t, empty, 1)

	limited := h.Rank([]models.RawResult{
		raw("a", "https://a.com/1", "x1"),
		raw("b", "https://b.com/1", "x2"),
	}, models.IntentSchedule, 2)
	require.Len(t, limited, 2)
	assert.Equal(t, sources.FallbackLinks[models.IntentSchedule].Link, limited[0].Link)
}

func TestRank_NoFallbackWhenSportsSourcePresent(t *testing.T) {
	h := newTestHandler(t)

	out := h.Rank([]models.RawResult{
		raw("FilGoal", "https://www.filgoal.com/matches", "مباريات"),
	}, models.IntentSchedule, 0)

	require.Len(t, out, 1)
	assert.Equal(t, "FilGoal", out[0].Title)
}

func TestExecute(t *testing.T) {
	h := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{
		Results: map[string]interface{}{"items": []interface{}{
			map[string]interface{}{"title": "x", "link": "https://x.com", "snippet": "y"},
		}},
		Intent: models.IntentGeneral,
	})
	require.NoError(t, err)
	assert.Len(t, out.Sources, 1)

	_, err = h.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilInput)
}
