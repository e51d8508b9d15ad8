package sources

import (
	"net/url"
	"strings"

	"askora/internal/models"
)

// BlockedDomains are social and video hosts whose result pages carry little text.
var BlockedDomains = []string{
	"facebook.com", "m.facebook.com", "x.com", "twitter.com",
	"tiktok.com", "instagram.com", "pinterest.com",
	"snapchat.com", "threads.net", "youtube.com", "youtu.be",
}

// PreferredDomains get the trust bonus. "gov" matches any government host.
var PreferredDomains = []string{
	"wikipedia.org", "britannica.com",
	"un.org", "who.int", "unicef.org",
	"worldbank.org", "imf.org", "oecd.org",
	"undp.org", "reliefweb.int",
	"cia.gov", "state.gov", "gov",
}

// IntentDomains are the authoritative hosts per domain-specific intent.
var IntentDomains = map[string][]string{
	models.IntentSchedule: {
		"kooora.com", "yallakora.com", "filgoal.com", "365scores.com",
		"espn.com", "goal.com", "livescore.com", "sofascore.com",
		"flashscore.com", "fotmob.com", "skysports.com", "beinsports.com",
	},
	models.IntentNews: {
		"aljazeera.net", "bbc.com", "bbc.co.uk", "reuters.com", "apnews.com",
		"alarabiya.net", "skynewsarabia.com", "cnn.com", "france24.com", "aawsat.com",
	},
	models.IntentDeploy: {
		"vercel.com", "github.com", "docs.github.com", "stackoverflow.com", "nextjs.org",
	},
	models.IntentCustoms: {
		"wcoomd.org", "zatca.gov.sa", "customs.gov.ae", "hts.usitc.gov", "trade.gov",
	},
}

// FallbackLinks are injected when an intent has no authoritative source.
var FallbackLinks = map[string]models.Source{
	models.IntentSchedule: {
		Title:   "مركز المباريات: مواعيد ونتائج مباريات اليوم",
		Link:    "https://www.yallakora.com/match-center",
		Content: "جدول مباريات اليوم والنتائج المباشرة لجميع الدوريات والبطولات.",
	},
}

var listingPathMarkers = []string{
	"/search", "/tag/", "/tags/", "/category/", "/categories/",
	"/hashtag/", "/label/", "/topics/", "/archive/",
}

// Domain returns the lowercase host of link without a leading "www.".
func Domain(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// MatchesDomain reports whether host equals or is a subdomain of an entry.
func MatchesDomain(host string, list []string) bool {
	if host == "" {
		return false
	}
	for _, d := range list {
		if d == "gov" {
			if strings.HasSuffix(host, ".gov") || strings.Contains(host, ".gov.") {
				return true
			}
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func IsBlocked(link string) bool {
	return MatchesDomain(Domain(link), BlockedDomains)
}

func IsPreferred(link string) bool {
	return MatchesDomain(Domain(link), PreferredDomains)
}

// IsIntentDomain reports whether link is authoritative for intent.
func IsIntentDomain(link, intent string) bool {
	list, ok := IntentDomains[intent]
	return ok && MatchesDomain(Domain(link), list)
}

// IsListingPage detects search result, tag and category pages.
func IsListingPage(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	if path != "/" && !strings.HasSuffix(path, "/") {
		path += "/"
	}
	for _, marker := range listingPathMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	q := u.Query()
	return q.Get("q") != "" || q.Get("s") != "" || q.Get("query") != ""
}

// ValidLink returns link when it is an absolute http(s) URL, otherwise "".
func ValidLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return link
}

// CanonicalLink normalizes link for de-duplication: scheme and "www." are
// dropped, as are the fragment, tracking parameters and trailing slash.
func CanonicalLink(link string) string {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(link))
	}
	q := u.Query()
	for key := range q {
		lk := strings.ToLower(key)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(key)
		}
	}
	out := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") + strings.TrimSuffix(u.EscapedPath(), "/")
	if enc := q.Encode(); enc != "" {
		out += "?" + enc
	}
	return out
}
