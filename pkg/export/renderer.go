package export

import "fmt"

// Renderer turns a dataset into file bytes of one format.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
}

// Supported export formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// Renderers returns the default renderer set keyed by format.
func Renderers() map[string]Renderer {
	return map[string]Renderer{
		FormatXLSX: NewXLSXExporter(),
		FormatCSV:  NewCSVExporter(),
		FormatPDF:  NewPDFExporter(),
	}
}

// ValidFormat reports whether format has a default renderer.
func ValidFormat(format string) bool {
	_, ok := Renderers()[format]
	return ok
}

// ForFormat looks up the renderer for format.
func ForFormat(renderers map[string]Renderer, format string) (Renderer, error) {
	r, ok := renderers[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return r, nil
}
