// internal/workers/ai-conversation/enrich-web-search/models.go
package enrichwebsearch

import "askora/internal/models"

type Input struct {
	Query    string `json:"query"`
	Question string `json:"question"`
	Intent   string `json:"intent"`
	Count    int    `json:"count"`
}

type Output struct {
	Results []models.RawResult `json:"results"`
	Queries []string           `json:"queries"`
}

// searchResponse is the subset of the Custom Search JSON API we read.
type searchResponse struct {
	Items []searchItem `json:"items"`
}

type searchItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	HTMLSnippet string `json:"htmlSnippet"`
	Mime        string `json:"mime"`
}
