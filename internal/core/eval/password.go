// Package eval implements the small expression surface blueprints use:
// generator expressions for option defaults ("=generate_password(...)"
// and "=generate_uuid()") and the condition documents that gate
// required options.
package eval

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// DefaultPasswordLength is used when no length bounds are given.
	DefaultPasswordLength = 12
	// MaxPasswordLength caps generated credentials.
	MaxPasswordLength = 255

	letters      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	alphanumeric = letters + "0123456789"
)

// PasswordOptions controls credential generation. Zero values fall
// back to a 12 character alphanumeric password starting with a letter.
type PasswordOptions struct {
	MinLength int
	MaxLength int
	// StartsWith restricts the first character. Defaults to letters.
	StartsWith string
	// ValidChars is the alphabet for the remaining characters.
	ValidChars string
	// RequiredChars must each appear at least once; they are placed
	// first, after the StartsWith character.
	RequiredChars []string
}

// GeneratePassword produces a random credential honoring opts.
func GeneratePassword(opts PasswordOptions) (string, error) {
	length := opts.MinLength
	if length == 0 {
		length = opts.MaxLength
	}
	if length == 0 {
		length = DefaultPasswordLength
	}
	if opts.MaxLength > 0 && opts.MaxLength < length {
		length = opts.MaxLength
	}
	if length > MaxPasswordLength {
		return "", fmt.Errorf("password length %d exceeds maximum of %d", length, MaxPasswordLength)
	}

	startsWith := opts.StartsWith
	if startsWith == "" {
		startsWith = letters
	}
	validChars := opts.ValidChars
	if validChars == "" {
		validChars = alphanumeric
	}
	if len(opts.RequiredChars)+1 > length {
		return "", fmt.Errorf("password length %d cannot fit %d required characters", length, len(opts.RequiredChars))
	}

	var b strings.Builder
	first, err := randomChar(startsWith)
	if err != nil {
		return "", err
	}
	b.WriteByte(first)

	for _, set := range opts.RequiredChars {
		c, err := randomChar(set)
		if err != nil {
			return "", err
		}
		b.WriteByte(c)
	}

	for b.Len() < length {
		c, err := randomChar(validChars)
		if err != nil {
			return "", err
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}

func randomChar(set string) (byte, error) {
	if set == "" {
		return 0, fmt.Errorf("empty character set")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, fmt.Errorf("reading randomness: %w", err)
	}
	return set[n.Int64()], nil
}
