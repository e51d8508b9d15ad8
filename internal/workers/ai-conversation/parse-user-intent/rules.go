package parseuserintent

import (
	"regexp"
	"strings"

	"askora/internal/common/textproc"
	"askora/internal/models"
)

type rule struct {
	label   string
	pattern *regexp.Regexp
	weight  int
}

const boundary = `[^\p{L}\p{N}]`

// words matches any alternative as a whole word. Alternatives are folded
// first so they are written in ordinary spelling.
func words(alts ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|` + boundary + `)(?:` + alternation(alts) + `)(?:` + boundary + `|$)`)
}

// stems matches any alternative anywhere, so Arabic proclitics and
// suffixes are tolerated.
func stems(alts ...string) *regexp.Regexp {
	return regexp.MustCompile(alternation(alts))
}

func alternation(alts []string) string {
	quoted := make([]string, len(alts))
	for i, a := range alts {
		quoted[i] = regexp.QuoteMeta(textproc.Fold(a))
	}
	return strings.Join(quoted, "|")
}

// rules are evaluated against folded text. Every matching rule adds its
// weight to its label.
var rules = []rule{
	{models.IntentSchedule, stems("مباريات", "مباراة", "ماتش", "جدول المباريات", "مواعيد المباريات"), 30},
	{models.IntentSchedule, stems("مباريات اليوم", "مباراة اليوم", "مباريات الليلة", "مباريات الغد", "مباريات امس"), 20},
	{models.IntentSchedule, words("match", "matches", "fixture", "fixtures", "kickoff", "scores", "livescore"), 25},
	{models.IntentSchedule, words("today's matches", "games today", "matches today", "football today"), 20},
	{models.IntentSchedule, stems("الدوري", "كأس", "الهلال", "النصر", "الأهلي", "الزمالك", "ريال مدريد", "برشلونة", "ليفربول", "كرة القدم", "premier league", "la liga", "champions league", "football", "soccer"), 15},
	{models.IntentSchedule, stems("نتيجة", "نتائج", "هدف", "أهداف"), 10},

	{models.IntentNews, stems("أخبار", "الأخبار", "خبر", "عاجل", "مستجدات", "آخر التطورات"), 30},
	{models.IntentNews, words("news", "latest", "breaking", "headlines"), 25},
	{models.IntentNews, stems("أحداث", "تطورات", "بيان"), 10},

	{models.IntentWhere, words("أين", "وين", "where"), 35},
	{models.IntentWhere, stems("تقع", "يقع", "located", "location", "خريطة"), 15},
	{models.IntentWhere, words("موقع", "map"), 5},

	{models.IntentDefine, words("ما هو", "ما هي", "ماهو", "ماهي", "ما معنى", "ما المقصود", "تعريف", "معنى", "مفهوم"), 30},
	{models.IntentDefine, regexp.MustCompile(`(?:^|\s)(?:what is|what are|what's|define|definition of|meaning of)(?:\s|$)`), 30},
	{models.IntentDefine, regexp.MustCompile(`what does .+ mean`), 25},

	{models.IntentWhoIs, words("من هو", "من هي", "من هم", "مين هو", "مين هي", "who is", "who was", "who are"), 40},
	{models.IntentWhoIs, stems("السيرة الذاتية", "biography", "نبذة عن"), 15},

	{models.IntentHowMany, words("كم", "how many", "how much"), 35},
	{models.IntentHowMany, words("كم عدد", "كم سعر", "كم يبلغ"), 10},
	{models.IntentHowMany, stems("عدد", "تعداد", "سكان", "population", "إحصائيات", "نسبة"), 15},
	{models.IntentHowMany, words("سعر", "price", "cost", "تكلفة"), 10},

	{models.IntentCompare, stems("قارن", "مقارنة", "الفرق بين", "أيهما أفضل", "أفضل من", "مقابل"), 35},
	{models.IntentCompare, words("compare", "comparison", "difference", "versus", "vs", "better than"), 35},

	{models.IntentHow, words("كيف", "كيفية", "how to", "how do", "how can", "how does"), 30},
	{models.IntentHow, words("how"), 20},
	{models.IntentHow, stems("طريقة", "خطوات", "steps", "tutorial", "guide"), 15},

	{models.IntentWhy, words("لماذا", "ليش", "why"), 35},
	{models.IntentWhy, stems("سبب", "أسباب", "reason", "cause"), 15},

	{models.IntentTranslate, stems("ترجم", "ترجمة", "translate", "translation", "بالإنجليزي", "بالانجليزية", "بالعربي", "in english", "in arabic"), 40},

	{models.IntentSummarize, stems("لخص", "تلخيص", "ملخص", "اختصر", "summarize", "summary", "tl;dr"), 40},

	{models.IntentDeploy, stems("vercel", "netlify", "deploy", "deployment", "نشر الموقع", "استضافة", "hosting"), 30},
	{models.IntentDeploy, words("github", "repo", "git", "نشر"), 15},
	{models.IntentDeploy, words("build", "error", "dns", "domain", "خطأ"), 8},

	{models.IntentCustoms, stems("جمارك", "جمركي", "الجمركية", "تعرفة", "customs", "tariff", "hs code", "رسوم الاستيراد", "import duty"), 35},
	{models.IntentCustoms, words("hs", "بند"), 20},

	{models.IntentGeneral, regexp.MustCompile(`\S`), 1},
}

// contextBoosts apply when the rolling context mentions a topic.
var contextBoosts = []rule{
	{models.IntentDeploy, stems("vercel", "deploy", "github", "نشر"), 15},
	{models.IntentCustoms, words("customs", "hs", "جمارك", "بند"), 15},
	{models.IntentSchedule, stems("مباريات", "مباراة", "الدوري", "match", "league", "football"), 10},
}

var (
	interrogativeRe = words(
		"أين", "وين", "من", "مين", "ما", "ماذا", "ايش", "كيف", "كم", "متى", "لماذا", "ليش", "هل",
		"what", "where", "who", "how", "when", "why", "which", "is", "are", "does", "do", "can",
	)
	sportsVocabRe = stems(
		"مباريات", "مباراة", "ماتش", "نتيجة", "نتائج", "الدوري", "كأس", "هداف", "ترتيب",
		"match", "score", "fixture", "league", "standings", "football", "soccer",
	)
	sportsWhenRe = stems("اليوم", "الليلة", "امس", "بكرة", "غدا", "today", "tonight", "tomorrow", "yesterday")
	newsVocabRe  = stems("أخبار", "خبر", "عاجل", "مستجدات", "news", "breaking", "headlines")
)

var domainKeywords = []struct {
	domain string
	re     *regexp.Regexp
}{
	{"geography", stems("دولة", "بلد", "مدينة", "عاصمة", "قارة", "حدود", "موقع", "تقع", "country", "city", "capital", "continent", "location", "located")},
	{"person", stems("شخص", "رئيس", "ملك", "نبي", "لاعب", "مخترع", "person", "president", "king", "player", "inventor")},
	{"economy", stems("اقتصاد", "سعر", "تكلفة", "راتب", "عملة", "ناتج", "economy", "price", "cost", "salary", "currency", "gdp")},
	{"history", stems("تاريخ", "قديما", "سنة", "حرب", "حدث", "history", "year", "war", "event")},
	{"technology", stems("تقنية", "ذكاء", "برمجة", "نظام", "تطبيق", "technology", "programming", "system")},
	{"health", stems("صحة", "مرض", "علاج", "دواء", "health", "disease", "treatment", "medicine")},
}

var (
	arabicLetterRe   = regexp.MustCompile(`[\x{0621}-\x{064A}]`)
	latinLetterRe    = regexp.MustCompile(`[a-zA-Z]`)
	requiresNumberRe = regexp.MustCompile(`\d|` + alternation([]string{"كم", "how many", "how much", "عدد", "سعر"}))
	temporalArabicRe = stems("متى", "اليوم", "الآن", "سنة", "عام")
	temporalLatinRe  = regexp.MustCompile(`\b(?:when|today|now|year)\b`)
)
