// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package textnorm normalises user-supplied Unicode text.
//
// # Usage
//
// Names arrive from browsers in either composed or decomposed form
// ("José" as é or e + U+0301). [Name] stores one canonical form, and [Fold]
// produces an accent-insensitive key for searches.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Name returns s in NFC with surrounding whitespace trimmed and inner runs of
// whitespace collapsed to a single space.
func Name(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// Email trims and lower-cases an email address. The local part is treated as
// case-insensitive, which matches the identity provider.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Fold returns a lower-case, accent-free form of s for comparisons.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFD (decomposes accented chars: é → e + combining acute).
// 2. Removes combining marks.
// 3. Recomposes to NFC and lower-cases.
func Fold(s string) string {
	chain := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(chain, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(Name(result))
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
