package render

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// HighlightSource renders the raw body source with markdown syntax colouring for
// the editor's source pane. On failure the source is returned unchanged with the error.
func HighlightSource(source string, theme string) (string, error) {
	lexer := lexers.Get("markdown")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(theme)
	if style == nil {
		style = styles.Fallback
	}

	formatter := html.New(
		html.WithClasses(true),
		html.WithLineNumbers(false),
		html.PreventSurroundingPre(true),
	)

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source, err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return source, err
	}

	result := `<div class="source-pane">` + buf.String() + `</div>`
	result = strings.ReplaceAll(result, "\n", "<br>\n")

	return result, nil
}
