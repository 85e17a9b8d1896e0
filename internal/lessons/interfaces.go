package lessons

import "context"

type Loader interface {
	LoadBuiltin(ctx context.Context) (Pool, error)
	LoadFile(ctx context.Context, path string) (Pool, error)
}
