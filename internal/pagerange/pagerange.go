// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pagerange parses page-selection expressions into page index sets.
//
// An expression is a comma-separated list of 1-based page numbers and
// inclusive ranges ("1-3,7,9-11"). Parse returns the union as a sorted,
// de-duplicated list of 0-based indices.
package pagerange

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidRange reports a malformed or out-of-bounds page expression.
var ErrInvalidRange = errors.New("invalid page range")

// Parse evaluates a page-selection expression against a document with
// pageCount pages. An empty expression selects every page. Page numbers are
// 1-based in the expression; the returned indices are 0-based, strictly
// ascending, with no duplicates.
func Parse(expr string, pageCount int) ([]int, error) {
	if pageCount <= 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidRange)
	}

	if strings.TrimSpace(expr) == "" {
		all := make([]int, pageCount)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	selected := make(map[int]bool)
	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("%w: empty token in %q", ErrInvalidRange, expr)
		}

		first, last, err := parseToken(token, pageCount)
		if err != nil {
			return nil, err
		}
		for p := first; p <= last; p++ {
			selected[p-1] = true
		}
	}

	pages := make([]int, 0, len(selected))
	for p := range selected {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

// parseToken evaluates one comma-separated token, either a single page
// number or an inclusive range "a-b". Both bounds are returned 1-based.
func parseToken(token string, pageCount int) (first, last int, err error) {
	if a, b, ok := strings.Cut(token, "-"); ok {
		first, err = parsePage(a, pageCount)
		if err != nil {
			return 0, 0, err
		}
		last, err = parsePage(b, pageCount)
		if err != nil {
			return 0, 0, err
		}
		if first > last {
			return 0, 0, fmt.Errorf("%w: inverted range %q", ErrInvalidRange, token)
		}
		return first, last, nil
	}

	first, err = parsePage(token, pageCount)
	if err != nil {
		return 0, 0, err
	}
	return first, first, nil
}

// parsePage parses a single 1-based page number and bounds-checks it.
func parsePage(s string, pageCount int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a page number", ErrInvalidRange, s)
	}
	if n < 1 || n > pageCount {
		return 0, fmt.Errorf("%w: page %d outside 1-%d", ErrInvalidRange, n, pageCount)
	}
	return n, nil
}
