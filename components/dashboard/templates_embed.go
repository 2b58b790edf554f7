package dashboard

import (
	"embed"
	"io/fs"

	template "github.com/goliatone/go-template"
)

//go:embed templates
var embeddedTemplates embed.FS

// NewTemplateRenderer creates a go-template renderer backed by the embedded
// pages. It does not read the working directory.
func NewTemplateRenderer() (Renderer, error) {
	pages, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return template.NewRenderer(
		template.WithFS(pages),
		template.WithExtension(".html"),
	)
}
