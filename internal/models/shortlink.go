package models

import (
	"math/rand"
	"strings"
)

const (
	shortLinkAlphabet  = "abcdefghijklmnopqrstuvwxyz0123456789"
	ShortLinkMinLength = 6
	ShortLinkMaxLength = 10
	// ShortLinkAttempts bounds the uniqueness retries on recipe creation.
	ShortLinkAttempts = 10
)

// ShortLinkGenerator produces candidate short-link tokens.
type ShortLinkGenerator func() string

// NewShortLink returns a random token of 6 to 10 lowercase letters and
// digits.
func NewShortLink() string {
	n := ShortLinkMinLength + rand.Intn(ShortLinkMaxLength-ShortLinkMinLength+1)
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(shortLinkAlphabet[rand.Intn(len(shortLinkAlphabet))])
	}
	return b.String()
}
