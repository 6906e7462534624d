package world

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/secure/precis"
	"golang.org/x/text/unicode/norm"
)

const (
	MaxNameRunes        = 16
	MaxDescriptionRunes = 64
)

var ErrInvalidName = errors.New("invalid character name")

// ValidateName enforces the PRECIS nickname profile and the length limit.
// It returns the normalized name.
func ValidateName(name string) (string, error) {
	out, err := precis.Nickname.String(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	n := utf8.RuneCountInString(out)
	if n == 0 || n > MaxNameRunes {
		return "", fmt.Errorf("%w: length %d", ErrInvalidName, n)
	}
	return out, nil
}

// CleanText NFC-normalizes s, drops control characters, trims surrounding
// space and caps the result at max runes.
func CleanText(s string, max int) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if max > 0 && utf8.RuneCountInString(s) > max {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:max]))
	}
	return s
}
