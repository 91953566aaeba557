// Package theme maps project themes to page classes and generates syntax CSS.
package theme

import (
	"html/template"
	"io"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/quick"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/debemdeboas/microsites/internal/cache"
	"github.com/debemdeboas/microsites/internal/config"
	"github.com/debemdeboas/microsites/internal/model"
)

// Classes are the CSS classes applied to a public page.
type Classes struct {
	// Page is set on the page container.
	Page string
	// Prose is set on the rendered body.
	Prose string
}

var classes = map[model.Theme]Classes{
	model.ThemeLight: {
		Page:  "bg-white text-gray-900",
		Prose: "prose prose-lg max-w-none prose-gray",
	},
	model.ThemeDark: {
		Page:  "bg-gray-950 text-gray-50",
		Prose: "prose prose-lg max-w-none prose-invert",
	},
	model.ThemeCustom: {
		Page:  "bg-gradient-to-br from-primary/5 to-accent/10 text-foreground",
		Prose: "prose prose-lg max-w-none prose-gray",
	},
}

// ClassesFor returns the classes of t. Unknown themes fall back to light.
func ClassesFor(t model.Theme) Classes {
	if c, ok := classes[t]; ok {
		return c
	}
	return classes[model.ThemeLight]
}

// DefaultSyntaxTheme picks the chroma style that suits t.
func DefaultSyntaxTheme(t model.Theme) string {
	light, dark := config.DefaultLightSyntaxTheme, config.DefaultDarkSyntaxTheme
	if config.AppConfig != nil {
		light = config.AppConfig.Theme.SyntaxHighlighting.DefaultLight
		dark = config.AppConfig.Theme.SyntaxHighlighting.DefaultDark
	}
	if t == model.ThemeDark {
		return dark
	}
	return light
}

// DefaultProjectTheme is the configured theme of projects without one.
func DefaultProjectTheme() model.Theme {
	if config.AppConfig != nil {
		if t, err := model.ParseTheme(config.AppConfig.Theme.Default); err == nil {
			return t
		}
	}
	return model.ThemeLight
}

func GetSyntaxThemes() []string {
	styleNames := styles.Names()
	slices.Sort(styleNames)
	return styleNames
}

func GetFormatter() *html.Formatter {
	return html.New(
		html.WithClasses(true),
		html.TabWidth(4),
		html.WithLineNumbers(false),
		html.WrapLongLines(true),
	)
}

// GenerateSyntaxCSS returns the chroma stylesheet of the named style,
// falling back to chroma's default style for unknown names.
func GenerateSyntaxCSS(theme string) template.CSS {
	return cache.SyntaxCSS(theme, syntaxCSS)
}

func syntaxCSS(theme string) template.CSS {
	var buf strings.Builder
	style := styles.Get(theme)

	bg := style.Get(chroma.Background)
	if !bg.Colour.IsSet() {
		// Pick a readable text colour when the style leaves it unset.
		luminance := (0.299*float64(bg.Background.Red()) +
			0.587*float64(bg.Background.Green()) +
			0.114*float64(bg.Background.Blue())) / 255
		if luminance > 0.5 {
			buf.WriteString(".chroma { color: #181818; }\n")
		}
	}

	GetFormatter().WriteCSS(&buf, style)
	return template.CSS(buf.String())
}

// HighlightSource writes source coloured for a 256-colour terminal.
func HighlightSource(w io.Writer, source, language, style string) error {
	return quick.Highlight(w, source, language, "terminal256", style)
}
