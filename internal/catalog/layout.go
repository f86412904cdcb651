package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// The indexer stores a variable's dimensions and chunking as the text of a
// tuple or list literal, e.g. "('time', 'yt_ocean', 'xt_ocean')" and
// "[1, 300, 360]". Chunking is the word "contiguous" for unchunked storage.

// DecodeLayout parses stored dimensions and chunking text into a
// positionally paired layout. Contiguous storage yields a zero chunk size
// for every dimension. Any malformed text or a length mismatch is an
// ErrLayout.
func DecodeLayout(dimensions, chunking string) ([]string, []int, error) {
	dims, err := ParseDimensions(dimensions)
	if err != nil {
		return nil, nil, err
	}
	sizes, err := ParseChunking(chunking)
	if err != nil {
		return nil, nil, err
	}
	if sizes == nil {
		sizes = make([]int, len(dims))
	}
	if len(dims) != len(sizes) {
		return nil, nil, fmt.Errorf("%w: %d dimensions %v but %d chunk sizes %v", ErrLayout, len(dims), dims, len(sizes), sizes)
	}
	return dims, sizes, nil
}

// ParseDimensions parses a sequence of quoted dimension names.
func ParseDimensions(s string) ([]string, error) {
	items, err := splitSequence(s)
	if err != nil {
		return nil, err
	}
	dims := make([]string, len(items))
	for i, item := range items {
		name, err := unquote(item)
		if err != nil {
			return nil, fmt.Errorf("%w: dimension %d in %q: %v", ErrLayout, i, s, err)
		}
		dims[i] = name
	}
	return dims, nil
}

// ParseChunking parses a sequence of positive chunk sizes. It returns nil
// for "contiguous" (and "None"), meaning the variable is not chunked.
func ParseChunking(s string) ([]int, error) {
	switch strings.TrimSpace(s) {
	case "contiguous", "None":
		return nil, nil
	}
	items, err := splitSequence(s)
	if err != nil {
		return nil, err
	}
	sizes := make([]int, len(items))
	for i, item := range items {
		n, err := strconv.Atoi(item)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: chunk size %d in %q is not a positive integer", ErrLayout, i, s)
		}
		sizes[i] = n
	}
	return sizes, nil
}

// splitSequence returns the trimmed items of a "(...)" or "[...]" literal.
// A single trailing comma is allowed, as in "('time',)".
func splitSequence(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || !((s[0] == '(' && s[len(s)-1] == ')') || (s[0] == '[' && s[len(s)-1] == ']')) {
		return nil, fmt.Errorf("%w: %q is not a sequence literal", ErrLayout, s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []string{}, nil
	}
	parts := strings.Split(inner, ",")
	if strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return nil, fmt.Errorf("%w: empty item in %q", ErrLayout, s)
		}
	}
	return parts, nil
}

func unquote(item string) (string, error) {
	if len(item) < 2 {
		return "", fmt.Errorf("not a quoted string")
	}
	switch q := item[0]; {
	case q == '"' && item[len(item)-1] == '"':
		return strconv.Unquote(item)
	case q == '\'' && item[len(item)-1] == '\'':
		inner := item[1 : len(item)-1]
		if strings.ContainsAny(inner, `'\`) {
			return "", fmt.Errorf("unsupported escape in %s", item)
		}
		return inner, nil
	}
	return "", fmt.Errorf("not a quoted string")
}
