package sources

import (
	"encoding/json"
	"fmt"
	"strings"

	"askora/internal/common/textproc"
	"askora/internal/models"
)

var (
	titleKeys   = []string{"title", "name", "headline"}
	linkKeys    = []string{"link", "url", "href", "formattedUrl", "displayLink"}
	contentKeys = []string{"content", "snippet", "description", "text", "summary", "htmlSnippet"}
	wrapperKeys = []string{"sources", "items", "results"}
)

// Coerce turns whatever a provider or caller handed over into clean
// Sources. Unknown shapes yield an empty, non-nil slice.
func Coerce(raw interface{}) []models.Source {
	items := flatten(raw, 0)
	out := make([]models.Source, 0, len(items))
	for _, item := range items {
		if src, ok := coerceItem(item); ok {
			out = append(out, src)
		}
	}
	return out
}

func flatten(raw interface{}, depth int) []interface{} {
	if depth > 3 {
		return nil
	}
	switch v := raw.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	case []models.Source:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []*models.Source:
		out := make([]interface{}, 0, len(v))
		for _, s := range v {
			if s != nil {
				out = append(out, *s)
			}
		}
		return out
	case []models.RawResult:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case []string:
		out := make([]interface{}, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out
	case json.RawMessage:
		return flattenJSON(v, depth)
	case []byte:
		return flattenJSON(v, depth)
	case map[string]interface{}:
		for _, key := range wrapperKeys {
			if inner, ok := v[key]; ok {
				return flatten(inner, depth+1)
			}
		}
		if hasAnyKey(v, titleKeys, linkKeys, contentKeys) {
			return []interface{}{v}
		}
		return nil
	case string, models.Source, models.RawResult:
		return []interface{}{v}
	case *models.Source:
		if v == nil {
			return nil
		}
		return []interface{}{*v}
	default:
		return nil
	}
}

func flattenJSON(raw []byte, depth int) []interface{} {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	return flatten(decoded, depth+1)
}

func hasAnyKey(m map[string]interface{}, groups ...[]string) bool {
	for _, keys := range groups {
		for _, k := range keys {
			if _, ok := m[k]; ok {
				return true
			}
		}
	}
	return false
}

func coerceItem(item interface{}) (models.Source, bool) {
	var title, link, content string
	switch v := item.(type) {
	case string:
		if l := ValidLink(v); l != "" {
			link = l
			title = Domain(l)
		} else {
			content = v
		}
	case models.Source:
		title, link, content = v.Title, v.Link, v.Content
	case models.RawResult:
		title, link, content = v.Title, v.Link, v.Snippet
		if content == "" {
			content = v.HTMLSnippet
		}
	case map[string]interface{}:
		title = firstString(v, titleKeys)
		link = firstString(v, linkKeys)
		content = firstString(v, contentKeys)
	default:
		return models.Source{}, false
	}

	src := models.Source{
		Title:   textproc.StripHTML(textproc.StripControl(title)),
		Link:    ValidLink(link),
		Content: textproc.StripHTML(textproc.StripControl(content)),
	}
	if src.Title == "" && src.Content == "" && src.Link == "" {
		return models.Source{}, false
	}
	return src, true
}

func firstString(m map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if s := ToString(m[k]); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// ToString converts scalars to text and everything else to "".
func ToString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case bool, int, int32, int64, float32, float64, json.Number:
		return fmt.Sprint(t)
	default:
		return ""
	}
}
