package summarizesources

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"askora/internal/common/textproc"
	"askora/internal/models"
)

var (
	unitBreaks = strings.NewReplacer(
		"•", "\n", "·", "\n", "▪", "\n", "●", "\n",
		" - ", "\n", " – ", "\n", " — ", "\n",
	)

	yearRe   = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)
	dateRe   = regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}\b`)
	monthRe  = regexp.MustCompile(`(?i)\b\d{1,2}\s+(يناير|فبراير|مارس|أبريل|ابريل|مايو|يونيو|يوليو|أغسطس|اغسطس|سبتمبر|أكتوبر|اكتوبر|نوفمبر|ديسمبر|january|february|march|april|may|june|july|august|september|october|november|december)`)
	numberRe = regexp.MustCompile(`\d[\d,.]*\s?(%|٪|مليون|مليار|ألف|million|billion|thousand|km|كم²|كم)?`)

	numbersWantedRe = regexp.MustCompile(`\d|كم|عدد|سعر|نسبه|how many|how much|price|number|population|سكان`)
)

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '؟', '۔':
		return true
	}
	return false
}

// splitUnits breaks text into sentence-like units at terminal punctuation
// followed by whitespace, newlines, bullets and spaced dashes.
func splitUnits(text string) []string {
	var units []string
	for _, line := range strings.Split(unitBreaks.Replace(text), "\n") {
		r := []rune(line)
		start := 0
		for i := 0; i < len(r); i++ {
			if isTerminal(r[i]) && i+1 < len(r) && unicode.IsSpace(r[i+1]) {
				units = appendUnit(units, string(r[start:i+1]))
				start = i + 1
			}
		}
		units = appendUnit(units, string(r[start:]))
	}
	return units
}

func appendUnit(units []string, u string) []string {
	u = textproc.Collapse(u)
	if u == "" {
		return units
	}
	return append(units, u)
}

// extract collects every unit of at least minRunes runes. Titles are units
// of their own.
func extract(srcs []models.Source, minRunes int) []candidate {
	var out []candidate
	add := func(text, link string, fromTitle bool) {
		if textproc.RuneLen(text) < minRunes {
			return
		}
		folded := textproc.Fold(textproc.ASCIIDigits(text))
		out = append(out, candidate{
			text:      text,
			folded:    folded,
			tokens:    textproc.NewTokenSet(textproc.Tokenize(text)),
			link:      link,
			fromTitle: fromTitle,
		})
	}
	for _, s := range srcs {
		if t := textproc.Collapse(s.Title); t != "" {
			add(t, s.Link, true)
		}
		for _, u := range splitUnits(s.Content) {
			add(u, s.Link, false)
		}
	}
	return out
}

// score rates each candidate by token overlap with the question plus small
// bonuses for titles, linked sources and longer units.
func score(cands []candidate, question textproc.TokenSet) {
	for i := range cands {
		c := &cands[i]
		c.score = textproc.Jaccard(c.tokens, question)
		if c.fromTitle {
			c.score += 0.05
		}
		if c.link != "" {
			c.score += 0.03
		}
		if textproc.RuneLen(c.text) >= 80 {
			c.score += 0.02
		}
	}
}

// selectTop returns up to max candidates by descending score, skipping
// any candidate too similar to one already taken.
func selectTop(cands []candidate, max int, threshold float64) []candidate {
	sorted := make([]candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].score > sorted[j].score })

	var picked []candidate
	seen := make(map[string]struct{})
	for _, c := range sorted {
		if len(picked) >= max {
			break
		}
		key := textproc.Collapse(c.folded)
		if _, dup := seen[key]; dup {
			continue
		}
		similar := false
		for _, p := range picked {
			if textproc.Jaccard(c.tokens, p.tokens) > threshold {
				similar = true
				break
			}
		}
		if similar {
			continue
		}
		seen[key] = struct{}{}
		picked = append(picked, c)
	}
	return picked
}

func wantsNumbers(intent, question string) bool {
	if intent == models.IntentHowMany {
		return true
	}
	return numbersWantedRe.MatchString(textproc.Fold(textproc.ASCIIDigits(question)))
}

// figures pulls dates/years and other quantities out of the candidates,
// at most max of each.
func figures(cands []candidate, max int) (dates, numbers []string) {
	seenDates := make(map[string]struct{})
	seenNumbers := make(map[string]struct{})
	push := func(list []string, seen map[string]struct{}, v string) []string {
		v = strings.TrimRight(strings.TrimSpace(v), ".,")
		if v == "" || len(list) >= max {
			return list
		}
		if _, ok := seen[v]; ok {
			return list
		}
		seen[v] = struct{}{}
		return append(list, v)
	}

	for _, c := range cands {
		text := textproc.ASCIIDigits(c.text)
		for _, re := range []*regexp.Regexp{dateRe, monthRe, yearRe} {
			for _, m := range re.FindAllString(text, -1) {
				dates = push(dates, seenDates, m)
			}
			text = re.ReplaceAllString(text, " ")
		}
		for _, m := range numberRe.FindAllString(text, -1) {
			numbers = push(numbers, seenNumbers, m)
		}
	}
	return dates, numbers
}
