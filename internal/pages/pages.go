// Package pages renders the public page and editor preview of a project and
// mirrors published pages to a page store.
package pages

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/microsites/internal/config"
	"github.com/debemdeboas/microsites/internal/editor"
	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/render"
	"github.com/debemdeboas/microsites/internal/theme"
)

//go:embed templates/*
var content embed.FS

var pagesLogger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	pagesLogger = l
}

type Renderer struct {
	tmpl *template.Template
	site string
}

func NewRenderer(site string) (*Renderer, error) {
	tmpl, err := template.ParseFS(content,
		config.TemplatesLocalDir+"/"+config.TemplatePublic,
		config.TemplatesLocalDir+"/"+config.TemplatePreview,
		config.TemplatesLocalDir+"/"+config.TemplateNotFound,
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl, site: site}, nil
}

type pageData struct {
	ID        model.ProjectID
	Name      string
	Site      string
	Preview   editor.Preview
	SyntaxCSS template.CSS
	Live      bool
}

func (r *Renderer) pageData(p *model.Project, live bool) pageData {
	state := p.State
	if !state.Theme.Valid() {
		state.Theme = theme.DefaultProjectTheme()
	}
	return pageData{
		ID:        p.ID,
		Name:      p.Name,
		Site:      r.site,
		Preview:   editor.NewPreview(state),
		SyntaxCSS: theme.GenerateSyntaxCSS(theme.DefaultSyntaxTheme(state.Theme)),
		Live:      live,
	}
}

// Page writes the public page of p. Live pages reload on change.
func (r *Renderer) Page(w io.Writer, p *model.Project, live bool) error {
	return r.tmpl.ExecuteTemplate(w, config.TemplateNamePublic, r.pageData(p, live))
}

func (r *Renderer) PageBytes(p *model.Project, live bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Page(&buf, p, live); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Preview writes the editor preview fragment of state, followed by the
// highlighted body source when there is one.
func (r *Renderer) Preview(w io.Writer, state model.ProjectState) error {
	data := struct {
		Preview    editor.Preview
		Source     template.HTML
		EmptyTitle string
		EmptyHint  string
	}{
		Preview:    editor.NewPreview(state),
		EmptyTitle: editor.EmptyPreviewTitle,
		EmptyHint:  editor.EmptyPreviewHint,
	}
	if state.Body != "" {
		source, err := render.HighlightSource(state.Body, theme.DefaultSyntaxTheme(state.Theme))
		if err != nil {
			pagesLogger.Warn().Err(err).Msg("Failed to highlight source")
		} else {
			data.Source = template.HTML(source)
		}
	}
	return r.tmpl.ExecuteTemplate(w, config.TemplateNamePreview, data)
}

// NotFound writes the page shown for missing and unpublished projects alike.
func (r *Renderer) NotFound(w io.Writer) error {
	data := struct {
		Site    string
		Message string
	}{
		Site:    r.site,
		Message: config.ErrProjectNotFoundOrUnpublished,
	}
	return r.tmpl.ExecuteTemplate(w, config.TemplateNameNotFound, data)
}
