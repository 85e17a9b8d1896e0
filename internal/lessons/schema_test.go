package lessons

import (
	"errors"
	"testing"
)

func validPool() Pool {
	return Pool{
		Kind:          PoolKind,
		SchemaVersion: SupportedSchemaVersion,
		PoolID:        "basics",
		Name:          "Basics",
		Lessons:       []Lesson{{Instruction: "heading", Target: "# Hello Markdown!"}},
	}
}

func TestPoolValidateRejectsUnsupportedSchemaVersion(t *testing.T) {
	p := validPool()
	p.SchemaVersion = SupportedSchemaVersion + 1
	if err := p.Validate(); err == nil {
		t.Fatalf("expected unsupported schema version error")
	}
}

func TestPoolValidateRejectsBlankTarget(t *testing.T) {
	p := validPool()
	p.Lessons = append(p.Lessons, Lesson{Instruction: "blank", Target: "  \n "})
	if err := p.Validate(); err == nil {
		t.Fatalf("expected blank target error")
	}
}

func TestPoolValidateEmpty(t *testing.T) {
	p := validPool()
	p.Lessons = nil
	if err := p.Validate(); !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("expected ErrEmptyPool, got %v", err)
	}
}

func TestPickReturnsTerminalSentinelPastEnd(t *testing.T) {
	p := validPool()
	if l, ok := p.Pick(0); !ok || l.Target != "# Hello Markdown!" {
		t.Fatalf("unexpected pick(0): %#v %v", l, ok)
	}
	l, ok := p.Pick(p.Len())
	if ok {
		t.Fatalf("expected terminal sentinel at pool length")
	}
	if l.Target != "" || l.Instruction == "" {
		t.Fatalf("unexpected sentinel: %#v", l)
	}
}
