package config

const (
	//? These paths must match the paths in the embed directive

	TemplatesLocalDir = "templates"

	TemplatePublic   = "public.html"
	TemplatePreview  = "preview.html"
	TemplateNotFound = "notfound.html"
)

// Template names defined inside the files above.
const (
	TemplateNamePublic   = "public"
	TemplateNamePreview  = "preview"
	TemplateNameNotFound = "notfound"
)

const (
	DefaultConfigPath = "config.yaml"
	DefaultEnvFile    = ".env"
)
