package vgtpl

import "strings"

// Markdown converts markdown source to its rendered form. The core
// only depends on this interface (spec.md ยง1: the markdown converter's
// implementation is out of scope); vgtpl/markdown provides a
// goldmark-backed default.
type Markdown interface {
	Convert(src string) (string, error)
}

// ApplyFilters runs value through fs left-to-right, in the order
// spec.md ยง8's "Filter composition" law requires: {{ x | f | g }}
// equals g(f(x)).
func ApplyFilters(value string, fs []Filter, md Markdown) (string, error) {
	for _, f := range fs {
		var err error
		value, err = applyFilter(value, f, md)
		if err != nil {
			return "", err
		}
	}
	return value, nil
}

func applyFilter(value string, f Filter, md Markdown) (string, error) {
	switch f.Kind {
	case FilterFlatten:
		return strings.ReplaceAll(value, "\n", " "), nil
	case FilterDetab:
		return strings.ReplaceAll(value, "\t", ""), nil
	case FilterTrim:
		return strings.TrimSpace(value), nil
	case FilterTrimStart:
		return strings.TrimLeft(value, " \t\r\n"), nil
	case FilterTrimEnd:
		return strings.TrimRight(value, " \t\r\n"), nil
	case FilterUpper:
		return strings.ToUpper(value), nil
	case FilterLower:
		return strings.ToLower(value), nil
	case FilterReplace:
		return strings.Replace(value, f.From, f.To, 1), nil
	case FilterMarkdown:
		if md == nil {
			return value, nil
		}
		return md.Convert(value)
	default:
		return value, nil
	}
}
