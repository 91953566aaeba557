package editor

import (
	"html/template"

	"github.com/debemdeboas/microsites/internal/model"
	"github.com/debemdeboas/microsites/internal/render"
	"github.com/debemdeboas/microsites/internal/theme"
)

const (
	EmptyPreviewTitle = "Your content will appear here"
	EmptyPreviewHint  = "Start editing to see your changes"
)

// Preview is what the preview pane and the public page show for a state.
type Preview struct {
	Title   string
	Tagline string
	Body    template.HTML
	Classes theme.Classes
	Empty   bool
}

func NewPreview(state model.ProjectState) Preview {
	p := Preview{
		Title:   state.Title,
		Tagline: state.Tagline,
		Classes: theme.ClassesFor(state.Theme),
		Empty:   state.Empty(),
	}
	if state.Body != "" {
		// Render escapes its input before adding markup.
		p.Body = template.HTML(render.RenderCached(state.Body))
	}
	return p
}
