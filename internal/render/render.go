// Package render turns the markdown subset used by project bodies into an HTML
// fragment, and highlights raw source for the editor pane.
package render

import (
	"html"
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/cache"
	"github.com/debemdeboas/microsites/internal/util"
)

var renderLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

// substitution is one rewrite step. Steps run in slice order.
type substitution struct {
	re   *regexp.Regexp
	repl string
}

var (
	headings = []substitution{
		{regexp.MustCompile(`(?m)^### (.*)$`), "<h3>$1</h3>"},
		{regexp.MustCompile(`(?m)^## (.*)$`), "<h2>$1</h2>"},
		{regexp.MustCompile(`(?m)^# (.*)$`), "<h1>$1</h1>"},
	}
	emphasis = []substitution{
		{regexp.MustCompile(`\*\*(.*?)\*\*`), "<strong>$1</strong>"},
		{regexp.MustCompile(`\*(.*?)\*`), "<em>$1</em>"},
	}

	linkRe   = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)
)

var allowedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
}

// Render converts source to an HTML fragment. Reserved HTML characters in the
// source are escaped before any markup is produced, so user text can never
// inject tags or attributes. The result is always wrapped in a paragraph.
func Render(source string) string {
	out := string(markdown.NormalizeNewlines([]byte(source)))
	out = html.EscapeString(out)

	for _, s := range headings {
		out = s.re.ReplaceAllString(out, s.repl)
	}
	for _, s := range emphasis {
		out = s.re.ReplaceAllString(out, s.repl)
	}
	out = linkRe.ReplaceAllStringFunc(out, renderLink)

	out = strings.ReplaceAll(out, "\n\n", "</p><p>")
	out = strings.ReplaceAll(out, "\n", "<br>")

	return "<p>" + out + "</p>"
}

func renderLink(match string) string {
	m := linkRe.FindStringSubmatch(match)
	label, href := m[1], m[2]
	if !safeHref(href) {
		return match
	}
	return `<a href="` + href + `">` + label + `</a>`
}

// safeHref accepts relative references and the schemes in allowedSchemes.
// href has already been escaped, so it cannot break out of the attribute.
func safeHref(href string) bool {
	href = strings.TrimSpace(html.UnescapeString(href))
	if href == "" {
		return false
	}
	scheme := schemeRe.FindString(href)
	if scheme == "" {
		return true
	}
	return allowedSchemes[strings.ToLower(strings.TrimSuffix(scheme, ":"))]
}

// RenderCached memoizes Render by the content hash of source.
func RenderCached(source string) string {
	hash := util.ContentHashString(source)
	if out, ok := cache.GetRendered(hash); ok {
		renderLogger.Debug().Str("contentHash", hash).Msg("Cache hit for rendered body")
		return out
	}

	renderLogger.Debug().Str("contentHash", hash).Msg("Cache miss for rendered body")
	out := Render(source)
	cache.SetRendered(hash, out)
	return out
}
