// Package tracking generates the short public codes customers use to look up
// an order without an account.
package tracking

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	// Prefix tags every tracking code so the codes are recognizable when
	// read aloud or typed into the tracking page.
	Prefix     = "TM-"
	codeLength = 6
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxAttempts bounds the rejection-sampling loop. With a 36^6 keyspace
	// hitting this cap means the code space is effectively exhausted, which
	// is a deployment problem, not a transient one.
	maxAttempts = 500
)

// ErrSpaceExhausted is returned when generation keeps colliding. Callers
// should treat it as fatal rather than retry.
var ErrSpaceExhausted = errors.New("tracking: code space exhausted")

// ExistsFunc reports whether a candidate code is already assigned to an order.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// GenerateUniqueCode draws random candidates until one passes the injected
// existence check. The database unique constraint on the code column remains
// the final arbiter; this loop only keeps insert-time collisions rare.
func GenerateUniqueCode(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := NewCode()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check tracking code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrSpaceExhausted
}

// NewCode returns a random candidate code without checking uniqueness. Bytes
// above the largest multiple of the alphabet size are discarded and redrawn so
// every character is equally likely.
func NewCode() (string, error) {
	const limit = byte(256 - 256%len(alphabet))

	code := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength)
	for len(code) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			code = append(code, alphabet[int(b)%len(alphabet)])
			if len(code) == codeLength {
				break
			}
		}
	}
	return Prefix + string(code), nil
}
