// internal/workers/ai-conversation/query-internal-data/models.go
package queryinternaldata

import "askora/internal/models"

type Input struct {
	Query    string `json:"query"`
	Question string `json:"question"`
	Intent   string `json:"intent"`
	Count    int    `json:"count"`
}

type Output struct {
	Results []models.RawResult `json:"results"`
}

// knowledgeDoc is one document of the knowledge index.
type knowledgeDoc struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	URL     string   `json:"url"`
	Tags    []string `json:"tags"`
}

type searchResult struct {
	Hits struct {
		Hits []struct {
			Source knowledgeDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}
