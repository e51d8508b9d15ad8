package models

// Intent labels in declaration order. Ties between equal rule scores are
// broken by this order.
const (
	IntentSchedule  = "schedule"
	IntentNews      = "news"
	IntentWhere     = "where"
	IntentDefine    = "define"
	IntentWhoIs     = "who_is"
	IntentHowMany   = "how_many"
	IntentCompare   = "compare"
	IntentHow       = "how"
	IntentWhy       = "why"
	IntentTranslate = "translate"
	IntentSummarize = "summarize"
	IntentDeploy    = "deploy"
	IntentCustoms   = "customs"
	IntentGeneral   = "general"
)

// IntentLabels lists every label in declaration order.
var IntentLabels = []string{
	IntentSchedule,
	IntentNews,
	IntentWhere,
	IntentDefine,
	IntentWhoIs,
	IntentHowMany,
	IntentCompare,
	IntentHow,
	IntentWhy,
	IntentTranslate,
	IntentSummarize,
	IntentDeploy,
	IntentCustoms,
	IntentGeneral,
}

// IsIntentLabel reports whether label is one of IntentLabels.
func IsIntentLabel(label string) bool {
	for _, l := range IntentLabels {
		if l == label {
			return true
		}
	}
	return false
}

type IntentResult struct {
	Label           string         `json:"label"`
	Confidence      float64        `json:"confidence"`
	Keywords        []string       `json:"keywords"`
	Language        string         `json:"language"`
	Domain          string         `json:"domain"`
	Depth           string         `json:"depth"`
	RequiresNumbers bool           `json:"requiresNumbers"`
	Temporal        bool           `json:"temporal"`
	Scores          map[string]int `json:"scores,omitempty"`
}
