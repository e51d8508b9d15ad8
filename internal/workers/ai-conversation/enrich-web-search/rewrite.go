package enrichwebsearch

import (
	"strings"

	"askora/internal/common/textproc"
	"askora/internal/models"
)

// rewrites holds extra query templates per intent; %s is the question.
var rewrites = map[string][]string{
	models.IntentWhere:    {"%s الموقع", "أين تقع %s"},
	models.IntentWhoIs:    {"%s السيرة الذاتية", "من هو %s"},
	models.IntentHowMany:  {"%s إحصائيات", "%s أرقام"},
	models.IntentDefine:   {"تعريف %s", "%s meaning"},
	models.IntentSchedule: {"%s مواعيد المباريات", "%s نتائج"},
	models.IntentNews:     {"%s آخر الأخبار"},
	models.IntentDeploy:   {"%s vercel docs"},
	models.IntentCustoms:  {"%s HS code"},
}

// RewriteQueries returns the question followed by its intent rewrites,
// deduplicated and capped at max.
func RewriteQueries(query, intent string, max int) []string {
	q := textproc.Collapse(query)
	if q == "" {
		return nil
	}
	out := []string{q}
	seen := map[string]bool{strings.ToLower(q): true}
	for _, tpl := range rewrites[intent] {
		candidate := strings.ReplaceAll(tpl, "%s", q)
		key := strings.ToLower(candidate)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, candidate)
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
