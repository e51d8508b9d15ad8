package models

// Source is one retrieved snippet after ranking: HTML-free, whitespace
// collapsed and length bounded. Link is empty or an absolute http(s) URL.
type Source struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Content string `json:"content"`
}

// RawResult is a provider item before it has been cleaned and ranked.
type RawResult struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Snippet     string `json:"snippet"`
	HTMLSnippet string `json:"htmlSnippet,omitempty"`
	Mime        string `json:"mime,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// SearchRequest is what the router sends to every search provider.
type SearchRequest struct {
	Query    string   `json:"query"`
	Intent   string   `json:"intent"`
	Keywords []string `json:"keywords,omitempty"`
	Count    int      `json:"count"`
}

// CompletionRequest carries everything a generative provider is given.
type CompletionRequest struct {
	Question string   `json:"question"`
	Intent   string   `json:"intent"`
	Context  string   `json:"context"`
	Sources  []Source `json:"sources"`
}
