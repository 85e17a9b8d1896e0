package lessons

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	PoolKind               = "lesson_pool"
	SupportedSchemaVersion = 1

	DefaultTerminalInstruction = "You've completed every lesson!"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,63}$`)

var ErrEmptyPool = errors.New("lesson pool has no lessons")

// Lesson is an instruction and the snippet the learner has to reproduce.
// Lessons are identified by their position in the pool.
type Lesson struct {
	Instruction string `yaml:"instruction" json:"instruction"`
	Target      string `yaml:"target" json:"target"`
}

type Pool struct {
	Kind                string   `yaml:"kind"`
	SchemaVersion       int      `yaml:"schema_version"`
	PoolID              string   `yaml:"pool_id"`
	Name                string   `yaml:"name"`
	TerminalInstruction string   `yaml:"terminal_instruction"`
	Lessons             []Lesson `yaml:"lessons"`

	Path string `yaml:"-"`
}

func (p Pool) Validate() error {
	if p.Kind != PoolKind {
		return fmt.Errorf("kind must be %q", PoolKind)
	}
	if p.SchemaVersion != SupportedSchemaVersion {
		return fmt.Errorf("unsupported schema_version %d", p.SchemaVersion)
	}
	if !idPattern.MatchString(p.PoolID) {
		return fmt.Errorf("invalid pool_id %q", p.PoolID)
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if len(p.Lessons) == 0 {
		return ErrEmptyPool
	}
	for i, l := range p.Lessons {
		if strings.TrimSpace(l.Instruction) == "" {
			return fmt.Errorf("lessons[%d]: instruction is required", i)
		}
		if strings.TrimSpace(l.Target) == "" {
			return fmt.Errorf("lessons[%d]: target is required", i)
		}
	}
	return nil
}

func (p Pool) Len() int { return len(p.Lessons) }

// Terminal is the sentinel returned once every lesson has been completed.
// Its target is empty, so no input ever matches it.
func (p Pool) Terminal() Lesson {
	instruction := strings.TrimSpace(p.TerminalInstruction)
	if instruction == "" {
		instruction = DefaultTerminalInstruction
	}
	return Lesson{Instruction: instruction}
}

// Pick returns the lesson at index, or the terminal sentinel and false when
// index is past the end of the pool.
func (p Pool) Pick(index int) (Lesson, bool) {
	if index < 0 || index >= len(p.Lessons) {
		return p.Terminal(), false
	}
	return p.Lessons[index], true
}
