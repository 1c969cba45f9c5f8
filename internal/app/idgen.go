/**
 * @description
 * Identifier generation for clients and projects. IDs are human-readable,
 * uppercase, zero-padded sequential values like CLI0007 or PRJ0012.
 *
 * The stored row count is only a hint for the next sequence number: two
 * concurrent creations can read the same count, so every candidate is
 * re-verified against the store before being committed. Later attempts add
 * a random suffix to escape contended sequence slots. Generation fails
 * explicitly after a bounded number of attempts rather than ever silently
 * reusing an identifier.
 */
package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	clientIDPrefix  = "CLI"
	projectIDPrefix = "PRJ"
	idNumberWidth   = 4
	maxIDAttempts   = 10
	// Sequential candidates are tried first; after this many misses the
	// generator switches to salted candidates.
	sequentialIDAttempts = 3
)

// existsFunc checks whether a candidate identifier is already taken.
type existsFunc func(ctx context.Context, id string) (bool, error)

// nextID produces the next unique identifier for the given prefix, using
// count as the sequence hint and exists for the uniqueness re-check.
func nextID(ctx context.Context, prefix string, count int, exists existsFunc) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		var candidate string
		if attempt < sequentialIDAttempts {
			candidate = fmt.Sprintf("%s%0*d", prefix, idNumberWidth, count+1+attempt)
		} else {
			salt, err := randomSalt(4)
			if err != nil {
				return "", err
			}
			candidate = fmt.Sprintf("%s%0*d%s", prefix, idNumberWidth, count+1+attempt, salt)
		}
		candidate = strings.ToUpper(candidate)

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrIDGenerationExhausted
}

// randomSalt returns n random uppercase alphanumeric characters.
func randomSalt(n int) (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	var b strings.Builder
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}

func (s *Service) nextClientID(ctx context.Context) (string, error) {
	count, err := s.repo.CountClients(ctx)
	if err != nil {
		return "", err
	}
	return nextID(ctx, clientIDPrefix, count, s.repo.ClientIDExists)
}

func (s *Service) nextProjectID(ctx context.Context) (string, error) {
	count, err := s.repo.CountProjects(ctx)
	if err != nil {
		return "", err
	}
	return nextID(ctx, projectIDPrefix, count, s.repo.ProjectIDExists)
}
