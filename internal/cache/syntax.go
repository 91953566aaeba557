package cache

import "html/template"

// Stylesheets are keyed by chroma style name.
var syntaxCache = NewCache[string, template.CSS]()

// SyntaxCSS returns the stylesheet of style, calling generate on first use.
func SyntaxCSS(style string, generate func(style string) template.CSS) template.CSS {
	if css, ok := syntaxCache.Get(style); ok {
		return css
	}
	css := generate(style)
	syntaxCache.Set(style, css)
	return css
}

func GetSyntaxCSS(style string) (template.CSS, bool) {
	return syntaxCache.Get(style)
}
