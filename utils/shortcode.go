package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// ShortCodeAlphabet leaves out 0, O, 1 and I so printed codes read unambiguously
	ShortCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	// ShortCodeLength is the number of characters in every issued code
	ShortCodeLength = 12
)

var alphabetSize = big.NewInt(int64(len(ShortCodeAlphabet)))

// GenerateShortCode returns a random code of ShortCodeLength characters.
// Each character is drawn uniformly from ShortCodeAlphabet using crypto/rand.
func GenerateShortCode() string {
	return generateCode(ShortCodeLength)
}

// GenerateShortCodes returns count pairwise-distinct codes.
// Distinctness holds within the returned slice only.
func GenerateShortCodes(count int) []string {
	if count <= 0 {
		return []string{}
	}

	seen := make(map[string]struct{}, count)
	codes := make([]string, 0, count)
	for len(codes) < count {
		code := GenerateShortCode()
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// NormalizeShortCode trims and uppercases a scanned or typed code
func NormalizeShortCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidShortCode reports whether code has the issued length and alphabet
func IsValidShortCode(code string) bool {
	if len(code) != ShortCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(ShortCodeAlphabet, r) {
			return false
		}
	}
	return true
}

func generateCode(length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is unusable
			panic("utils: crypto/rand unavailable: " + err.Error())
		}
		b.WriteByte(ShortCodeAlphabet[n.Int64()])
	}
	return b.String()
}
