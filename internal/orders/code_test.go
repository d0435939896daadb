package orders

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"
)

var orderCodePattern = regexp.MustCompile(`^ORD-\d{8}-[A-Z0-9]{6}$`)

func TestGenerateFormat(t *testing.T) {
	gen := NewCodeGenerator(newMemoryRepo(), 10)
	gen.now = func() time.Time { return time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC) }

	for i := 0; i < 50; i++ {
		code, err := gen.Generate(context.Background())
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if !orderCodePattern.MatchString(code) {
			t.Fatalf("code %q does not match pattern", code)
		}
		if code[4:12] != "20260307" {
			t.Fatalf("expected date part 20260307, got %s", code[4:12])
		}
	}
}

type collidingChecker struct {
	collisions int
	seen       []string
}

func (c *collidingChecker) CodeExists(_ context.Context, code string) (bool, error) {
	c.seen = append(c.seen, code)
	return len(c.seen) <= c.collisions, nil
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	checker := &collidingChecker{collisions: 1}
	code, err := NewCodeGenerator(checker, 10).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(checker.seen) != 2 {
		t.Fatalf("expected 2 candidates checked, got %d", len(checker.seen))
	}
	if code != checker.seen[1] {
		t.Fatalf("expected second candidate %s, got %s", checker.seen[1], code)
	}
}

func TestGenerateGivesUpAfterCap(t *testing.T) {
	checker := &collidingChecker{collisions: 1000}
	_, err := NewCodeGenerator(checker, 4).Generate(context.Background())
	if !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("expected ErrCodeSpaceExhausted, got %v", err)
	}
	if len(checker.seen) != 4 {
		t.Fatalf("expected 4 attempts, got %d", len(checker.seen))
	}
}
