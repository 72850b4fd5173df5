// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package query parses list-style URL query parameters.
package query

import (
	"strconv"
	"strings"
)

// StringSlice splits a comma-separated value into trimmed, non-empty items.
// Repeated parameters (?rol=a&rol=b) are merged.
func StringSlice(values []string) []string {
	var result []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if clean := strings.TrimSpace(item); clean != "" {
				result = append(result, clean)
			}
		}
	}
	return result
}

// Bool parses a boolean parameter. ok is false when value is empty or malformed.
func Bool(value string) (parsed bool, ok bool) {
	if value == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(value)
	return parsed, err == nil
}
