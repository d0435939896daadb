package orders

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

const (
	codeAlphabet       = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeSuffixLength   = 6
	defaultCodeRetries = 10
)

// CodeGenerator issues ORD-YYYYMMDD-XXXXXX order codes that are not yet taken.
type CodeGenerator struct {
	checker     CodeChecker
	maxAttempts int
	now         func() time.Time
	random      io.Reader
}

func NewCodeGenerator(checker CodeChecker, maxAttempts int) *CodeGenerator {
	if maxAttempts <= 0 {
		maxAttempts = defaultCodeRetries
	}
	return &CodeGenerator{
		checker:     checker,
		maxAttempts: maxAttempts,
		now:         time.Now,
		random:      rand.Reader,
	}
}

// Generate returns a code no persisted order uses. It gives up with
// ErrCodeSpaceExhausted after maxAttempts collisions.
func (g *CodeGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.candidate()
		if err != nil {
			return "", err
		}

		exists, err := g.checker.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check order code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrCodeSpaceExhausted, g.maxAttempts)
}

func (g *CodeGenerator) candidate() (string, error) {
	suffix := make([]byte, codeSuffixLength)
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(g.random, limit)
		if err != nil {
			return "", fmt.Errorf("read random order code: %w", err)
		}
		suffix[i] = codeAlphabet[n.Int64()]
	}
	return fmt.Sprintf("ORD-%s-%s", g.now().Format("20060102"), suffix), nil
}
