package cloudlydb

import (
	"fmt"
	"strings"
)

// ProjectionExpr is a built projection expression and its name placeholders.
type ProjectionExpr struct {
	Expression string
	Names      map[string]string
}

// Projection builds a projection expression for dotted attribute paths.
// Every segment is addressed through a placeholder; a segment name used by
// several paths shares one placeholder.
//
//	p, _ := Projection("data.name", "data.stats.views")
//	// p.Expression == "#data.#name, #data.#stats.#views"
func Projection(paths ...string) (ProjectionExpr, error) {
	if len(paths) == 0 {
		return ProjectionExpr{}, fmt.Errorf("%w: no projection paths", ErrInvalidField)
	}

	n := newNamer()
	seen := make(map[string]bool, len(paths))
	exprs := make([]string, 0, len(paths))

	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true

		segments := strings.Split(path, ".")
		aliases := make([]string, len(segments))
		for i, segment := range segments {
			if segment == "" {
				return ProjectionExpr{}, fmt.Errorf("%w: empty segment in path %q", ErrInvalidField, path)
			}
			aliases[i] = n.name(segment)
		}
		exprs = append(exprs, strings.Join(aliases, "."))
	}

	return ProjectionExpr{
		Expression: strings.Join(exprs, ", "),
		Names:      n.names,
	}, nil
}
