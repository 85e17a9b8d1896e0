package app

import (
	"context"

	"mdplayground/internal/lessons"
)

type Enhancer interface {
	Configured() bool
	Enhance(ctx context.Context, text string) string
}

type PoolLoader interface {
	Load(ctx context.Context, path string) (lessons.Pool, error)
}

var _ PoolLoader = (*lessons.FSLoader)(nil)
