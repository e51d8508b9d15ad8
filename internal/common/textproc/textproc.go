// Package textproc holds the bilingual (Arabic/English) text helpers shared
// by the normalizer, the intent classifier, the ranker and the summarizer.
package textproc

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const Ellipsis = "…"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)

	arabicFolds = strings.NewReplacer(
		"ة", "ه",
		"ى", "ي",
		"ـ", "",
		"ٱ", "ا",
	)

	digitFolds = strings.NewReplacer(
		"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
		"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
		"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
		"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	)
)

var stopwordList = []string{
	"في", "من", "على", "الى", "إلى", "عن", "هو", "هي", "هذا", "هذه", "ذلك", "تلك",
	"ما", "ماذا", "كيف", "كم", "أين", "اين",
	"the", "a", "an", "is", "are", "of", "to", "in", "on", "for", "and", "or", "with", "by", "as",
}

var stopwords = func() map[string]struct{} {
	m := make(map[string]struct{}, len(stopwordList))
	for _, w := range stopwordList {
		m[Fold(w)] = struct{}{}
	}
	return m
}()

// Fold lowercases s, strips combining marks (Arabic diacritics and the
// hamza carried on alef, waw and yaa), removes tatweel and maps
// taa-marbuta to haa and alef-maksura to yaa.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return arabicFolds.Replace(strings.ToLower(out))
}

// Collapse turns every whitespace run into one space and trims.
func Collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// StripControl replaces control characters, U+FFFD and invalid UTF-8 with spaces.
func StripControl(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == utf8.RuneError:
			b.WriteByte(' ')
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r) || unicode.Is(unicode.Cf, r) && r != '\u200c' && r != '\u200d':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Clean is StripControl followed by Collapse.
func Clean(s string) string {
	return Collapse(StripControl(s))
}

// Squash shortens runs of three or more identical letters or punctuation
// marks to two in every word that does not look like a URL. Digit runs are
// left alone.
func Squash(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if strings.Contains(w, "://") || strings.HasPrefix(w, "www.") {
			continue
		}
		words[i] = squashRepeats(w)
	}
	return strings.Join(words, " ")
}

func squashRepeats(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run > 2 && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// StripHTML removes tags and decodes entities.
func StripHTML(s string) string {
	return Collapse(html.UnescapeString(htmlTagRe.ReplaceAllString(s, " ")))
}

// ASCIIDigits rewrites Arabic-Indic and extended Arabic-Indic digits as 0-9.
func ASCIIDigits(s string) string {
	return digitFolds.Replace(s)
}

func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// Words splits folded text into letter/digit runs.
func Words(s string) []string {
	return strings.FieldsFunc(Fold(ASCIIDigits(s)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Tokenize returns Words without stopwords and single-rune tokens.
func Tokenize(s string) []string {
	words := Words(s)
	out := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) < 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

func IsStopword(w string) bool {
	_, ok := stopwords[Fold(w)]
	return ok
}

type TokenSet map[string]struct{}

func NewTokenSet(tokens []string) TokenSet {
	set := make(TokenSet, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Jaccard is |a∩b| / |a∪b|, zero when either set is empty.
func Jaccard(a, b TokenSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// Truncate cuts s to max runes, the last being the ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max-1])) + Ellipsis
}

// Clip is Truncate that prefers to cut at a word boundary in the second
// half of the allowed length.
func Clip(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	full := []rune(s)
	r := full[:max-1]
	cut := len(r)
	if !unicode.IsSpace(full[max-1]) {
		for i := len(r) - 1; i > len(r)/2; i-- {
			if unicode.IsSpace(r[i]) {
				cut = i
				break
			}
		}
	}
	return strings.TrimRight(strings.TrimSpace(string(r[:cut])), ",،;:-") + Ellipsis
}
