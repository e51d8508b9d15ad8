package summarizesources

import (
	"regexp"
	"strings"

	"askora/internal/common/textproc"
	"askora/internal/models"
)

// answerTemplate shapes the final text for one intent.
type answerTemplate struct {
	// leadIn prefixes the direct answer.
	leadIn string
	// header introduces the bullet list.
	header string
	// cue picks the direct answer among the selected candidates. When nil
	// or unmatched the best-scored candidate is used.
	cue *regexp.Regexp
	// expect and clarify: when the summary lacks expect, clarify is
	// prepended to it.
	expect  *regexp.Regexp
	clarify string
	// linksFirst templates lead with links since snippets rarely hold the
	// structured data the user wants.
	linksFirst bool
	heading    string
	guidance   string
}

func cue(alts ...string) *regexp.Regexp {
	quoted := make([]string, len(alts))
	for i, a := range alts {
		quoted[i] = regexp.QuoteMeta(textproc.Fold(a))
	}
	return regexp.MustCompile(strings.Join(quoted, "|"))
}

var (
	whereCue   = cue("تقع", "يقع", "عاصمة", "شمال", "جنوب", "شرق", "غرب", "located", "situated", "capital", "lies")
	numericCue = regexp.MustCompile(`\d`)
)

var templates = map[string]answerTemplate{
	models.IntentWhere: {
		leadIn:  "الموقع: ",
		header:  "أهم النقاط:",
		cue:     whereCue,
		expect:  whereCue,
		clarify: "معلومات عن الموقع: ",
	},
	models.IntentDefine: {
		leadIn: "التعريف: ",
		header: "أهم النقاط:",
		cue:    cue("هو ", "هي ", "عبارة عن", "يعرف", "يعني", "يشير", " is a ", " is an ", "refers to", "defined as", "means"),
	},
	models.IntentWhoIs: {
		leadIn: "نبذة: ",
		header: "أهم النقاط:",
		cue:    cue("ولد", "هو ", "هي ", "born", " was a ", " is a ", "رئيس", "لاعب", "كاتب", "عالم"),
	},
	models.IntentHow: {
		leadIn: "الطريقة باختصار: ",
		header: "خطوات/نقاط عملية:",
		cue:    cue("خطوة", "أولا", "يمكنك", "قم ب", "اذهب", "افتح", "اضغط", "step", "first", "click", "run ", "install", "go to"),
	},
	models.IntentWhy: {
		leadIn: "السبب: ",
		header: "أهم النقاط:",
		cue:    cue("بسبب", "لأن", "نتيجة", "يعود", "because", "due to", "caused", "reason"),
	},
	models.IntentHowMany: {
		leadIn:  "الرقم الأقرب: ",
		header:  "أهم النقاط:",
		cue:     numericCue,
		expect:  numericCue,
		clarify: "أرقام ذات صلة: ",
	},
	models.IntentCompare: {
		header: "مقارنة مختصرة:",
		cue:    cue("بينما", "أما", "مقارنة", "الفرق", "while", "whereas", "compared", " than ", " vs "),
	},
	models.IntentGeneral: {
		header: "أهم النقاط:",
	},
	models.IntentSchedule: {
		linksFirst: true,
		heading:    "أفضل المصادر لمتابعة مباريات اليوم:",
		guidance:   "لتحصل على مواعيد ونتائج أدق، اذكر اسم الفريق أو الدوري (مثلاً: الدوري السعودي أو دوري أبطال أوروبا).",
	},
	models.IntentNews: {
		linksFirst: true,
		heading:    "أحدث المصادر الإخبارية:",
		guidance:   "حدّد الموضوع أو الدولة (مثلاً: أخبار الاقتصاد في مصر) لأعطيك ملخصًا أدق.",
	},
}

var defaultTemplate = answerTemplate{header: "ملخص:"}

func templateFor(intent string) answerTemplate {
	if t, ok := templates[intent]; ok {
		return t
	}
	return defaultTemplate
}

const (
	emptyQuestionText  = "السؤال فارغ."
	noResultsText      = "لم أجد نتائج كافية الآن.\nحاول إعادة صياغة السؤال: \"%s\""
	shortTextNote      = "ملاحظة: وجدت مصادر لكن النصوص قصيرة/ضعيفة للتلخيص. جرّب صياغة ثانية."
	weakMatchNote      = "ملاحظة: النتائج قد لا تكون دقيقة تمامًا لأن تطابقها مع سؤالك ضعيف."
	quickSummaryHeader = "ملخص سريع:"
	sourcesHeader      = "المصادر المتاحة:"
	briefLeadIn        = "باختصار: "
	datesLabel         = "تواريخ وسنوات: "
	figuresLabel       = "أرقام: "
)
