package websearch

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	redirectParam = regexp.MustCompile(`uddg=([^&]*)`)
	whitespaceRun = regexp.MustCompile(`\s+`)

	entityReplacer = strings.NewReplacer(
		"&quot;", `"`,
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&#39;", "'",
	)
)

// CleanURL unwraps a search engine redirect link that carries the
// percent-encoded destination in a uddg parameter. Any other URL, or one
// whose destination cannot be decoded, is returned unchanged. A literal +
// in the destination is kept.
func CleanURL(raw string) string {
	match := redirectParam.FindStringSubmatch(raw)
	if match == nil {
		return raw
	}
	decoded, err := url.PathUnescape(match[1])
	if err != nil {
		return raw
	}
	return decoded
}

// CleanText decodes the common HTML entities and collapses whitespace
func CleanText(raw string) string {
	text := entityReplacer.Replace(raw)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// resolveLink makes a scraped href absolute. DuckDuckGo serves
// protocol-relative redirect links.
func resolveLink(href string) string {
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}
