// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pagination provides shared types and helpers for API list endpoints.
//
// # Overview
//
// It standardizes how page-based navigation and free-text search are
// requested via query parameters, and how the resulting metadata is delivered
// in the API response envelope.
package pagination

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultLimit is the number of items per page if not specified.
	DefaultLimit = 20
	// MaxLimit is the upper bound for items per page.
	MaxLimit = 100
	// DefaultPage is the starting page (1-indexed).
	DefaultPage = 1
	// MaxSearchLength truncates overly long search terms.
	MaxSearchLength = 100
)

// Params holds the parsed page, limit and search term of a list request.
type Params struct {
	Page   int
	Limit  int
	Search string
}

// Offset returns the SQL OFFSET value derived from Page and Limit.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination metadata included in API list responses.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewMeta constructs pagination metadata, deriving TotalPages from total and limit.
func NewMeta(params Params, total int) Meta {
	totalPages := 0
	if params.Limit > 0 {
		totalPages = (total + params.Limit - 1) / params.Limit
	}

	return Meta{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// FromRequest parses "page", "limit" and "search" query parameters.
//
// # Clamping
//
// Invalid or negative values fall back to [DefaultPage] and [DefaultLimit];
// limits above [MaxLimit] are clamped to it.
func FromRequest(r *http.Request) Params {
	query := r.URL.Query()

	page := parseInt(query.Get("page"), DefaultPage)
	if page < 1 {
		page = DefaultPage
	}

	limit := parseInt(query.Get("limit"), DefaultLimit)
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	search := strings.TrimSpace(query.Get("search"))
	if utf8.RuneCountInString(search) > MaxSearchLength {
		search = string([]rune(search)[:MaxSearchLength])
	}

	return Params{Page: page, Limit: limit, Search: search}
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
