package web

import "context"

type Logger interface {
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type Renderer interface {
	Render(markdown string) string
}

type Enhancer interface {
	Configured() bool
	Enhance(ctx context.Context, text string) string
}
