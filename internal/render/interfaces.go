package render

// Renderer maps Markdown to display-ready output. Implementations never fail;
// a broken document renders as an empty string.
type Renderer interface {
	Render(markdown string) string
}

type Logger interface {
	Error(msg string, fields map[string]any)
}
