package lessons

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/pool.yaml
var builtinPool []byte

type FSLoader struct{}

func NewLoader() *FSLoader { return &FSLoader{} }

func (l *FSLoader) LoadBuiltin(ctx context.Context) (Pool, error) {
	pool, err := parsePool(builtinPool)
	if err != nil {
		return Pool{}, fmt.Errorf("load builtin pool: %w", err)
	}
	pool.Path = "builtin"
	return pool, nil
}

func (l *FSLoader) LoadFile(ctx context.Context, path string) (Pool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pool{}, err
	}
	pool, err := parsePool(b)
	if err != nil {
		return Pool{}, fmt.Errorf("load pool %s: %w", path, err)
	}
	pool.Path = path
	return pool, nil
}

// Load reads the pool at path, or the builtin pool when path is empty.
func (l *FSLoader) Load(ctx context.Context, path string) (Pool, error) {
	if strings.TrimSpace(path) == "" {
		return l.LoadBuiltin(ctx)
	}
	return l.LoadFile(ctx, path)
}

func parsePool(b []byte) (Pool, error) {
	var pool Pool
	if err := yaml.Unmarshal(b, &pool); err != nil {
		return pool, err
	}
	applyPoolDefaults(&pool)
	if err := pool.Validate(); err != nil {
		return pool, err
	}
	return pool, nil
}

func applyPoolDefaults(pool *Pool) {
	if pool.Kind == "" {
		pool.Kind = PoolKind
	}
	if pool.SchemaVersion == 0 {
		pool.SchemaVersion = SupportedSchemaVersion
	}
	if pool.TerminalInstruction == "" {
		pool.TerminalInstruction = DefaultTerminalInstruction
	}
	for i := range pool.Lessons {
		pool.Lessons[i].Target = strings.ReplaceAll(pool.Lessons[i].Target, "\r\n", "\n")
	}
}
