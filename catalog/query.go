// Package catalog turns raw list-request parameters into a normalized,
// storage-agnostic query Spec. The store translates a Spec into
// document-store operators; nothing in this package knows about MongoDB,
// which keeps the builder testable without a live database.
package catalog

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
)

// Params carries the raw, untrusted request parameters.
type Params struct {
	Page     string
	Limit    string
	Category string
	Author   string
	Search   string
	Featured string
	Sort     string
}

// ParamsFromQuery lifts the list parameters out of a URL query string.
func ParamsFromQuery(q url.Values) Params {
	return Params{
		Page:     q.Get("page"),
		Limit:    q.Get("limit"),
		Category: q.Get("category"),
		Author:   q.Get("author"),
		Search:   q.Get("search"),
		Featured: q.Get("featured"),
		Sort:     q.Get("sort"),
	}
}

// SortRule orders results by one field; rules apply left-to-right as
// tie-breaks.
type SortRule struct {
	Field      string
	Descending bool
}

// Spec is the normalized query produced by Build.
//
// Author and Search hold pattern-escaped text: they are only ever matched
// as case-insensitive literal substrings, with Search applying to title
// OR author OR description. All filters combine with logical AND. A
// malformed Category reference degrades to an empty result set rather
// than an error.
type Spec struct {
	Category string
	Author   string
	Search   string
	Featured bool
	Sort     []SortRule
	Page     int64
	Limit    int64
	Skip     int64
}

// Build normalizes raw parameters into a Spec. Non-positive or
// non-numeric page/limit fall back to the defaults; no input combination
// raises an error.
func Build(p Params) Spec {
	page := parsePositive(p.Page, DefaultPage)
	limit := parsePositive(p.Limit, DefaultLimit)
	return Spec{
		Category: strings.TrimSpace(p.Category),
		Author:   EscapePattern(strings.TrimSpace(p.Author)),
		Search:   EscapePattern(strings.TrimSpace(p.Search)),
		Featured: p.Featured == "true",
		Sort:     parseSort(p.Sort),
		Page:     page,
		Limit:    limit,
		Skip:     (page - 1) * limit,
	}
}

func parsePositive(s string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// parseSort splits a comma-separated field list; a leading '-' marks the
// field descending. An empty list yields the default: newest first.
func parseSort(s string) []SortRule {
	var rules []SortRule
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" || field == "-" {
			continue
		}
		if strings.HasPrefix(field, "-") {
			rules = append(rules, SortRule{Field: field[1:], Descending: true})
		} else {
			rules = append(rules, SortRule{Field: field})
		}
	}
	if len(rules) == 0 {
		return []SortRule{{Field: "createdAt", Descending: true}}
	}
	return rules
}

// EscapePattern neutralizes pattern-matching metacharacters so user input
// never gains unintended pattern semantics when matched as a substring.
func EscapePattern(s string) string {
	return regexp.QuoteMeta(s)
}
