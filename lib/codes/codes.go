// Package codes generates opaque, URL-safe referral and campaign codes.
package codes

import (
	"crypto/rand"
	"fmt"
)

// Alphabet avoids characters that are easy to misread when codes are
// shared by hand (no 0/O, 1/l/I).
const alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz"

const (
	MinLength     = 8
	MaxLength     = 10
	DefaultLength = 8
)

// New returns a random code of n characters drawn uniformly from the
// alphabet. n outside [MinLength, MaxLength] falls back to DefaultLength.
func New(n int) (string, error) {
	if n < MinLength || n > MaxLength {
		n = DefaultLength
	}
	// reject bytes above the largest multiple of the alphabet size,
	// a plain modulo would skew toward the low characters
	max := 256 - 256%len(alphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= max {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
