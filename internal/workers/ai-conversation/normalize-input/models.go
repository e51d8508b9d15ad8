// internal/workers/ai-conversation/normalize-input/models.go
package normalizeinput

type Input struct {
	Text     string `json:"text"`
	Question string `json:"question,omitempty"`
	Context  string `json:"context"`
}

// question accepts either field name; "text" wins.
func (i *Input) question() string {
	if i.Text != "" {
		return i.Text
	}
	return i.Question
}

type Output struct {
	Text           string `json:"text"`
	TextNormalized string `json:"textNormalized"`
	Context        string `json:"context"`
	IsURL          bool   `json:"isUrl"`
	Length         int    `json:"length"`
}
