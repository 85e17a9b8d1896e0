package enhance

import "context"

// Provider turns text into an enhanced version of itself.
type Provider interface {
	Name() string
	Enhance(ctx context.Context, text string) (string, error)
}

type Logger interface {
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
}
