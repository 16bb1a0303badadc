package cloudlydb

import (
	"fmt"
	"slices"
	"strings"
)

// Mode selects the update action an Expression compiles to.
type Mode int

const (
	// ModeAssign compiles to a SET action. Leaves overwrite stored values.
	ModeAssign Mode = iota
	// ModeAccumulate compiles to an ADD action. Leaves are added to stored values.
	ModeAccumulate
)

// String returns the DynamoDB action keyword for the mode.
func (m Mode) String() string {
	switch m {
	case ModeAssign:
		return "SET"
	case ModeAccumulate:
		return "ADD"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Whole marks a nested map that must be written as a single value rather than
// flattened into one clause per leaf. Use it for maps that do not exist yet on
// the stored item: DynamoDB rejects a SET on a path whose parent is missing.
type Whole map[string]any

// Expression is a compiled update expression.
type Expression struct {
	Mode    Mode
	Names   map[string]string // "#alias" -> attribute name
	Values  map[string]any    // ":alias" -> value
	Clauses []string
}

// String renders the expression, e.g. "SET #a = :a, #b.#bc = :bc".
func (e Expression) String() string {
	return e.Mode.String() + " " + strings.Join(e.Clauses, ", ")
}

// Compile flattens doc into an update expression. Nested plain maps are
// walked depth-first and every leaf becomes one clause addressed through
// placeholders; fields are visited in sorted order so the output is
// deterministic.
//
// In ModeAssign, Whole values and empty maps are assigned as a single leaf.
// In ModeAccumulate every nested map is walked, and a top-level updatedAt
// field is ignored.
//
// Compile returns ErrEmptyExpression when doc produces no clauses.
func Compile(doc map[string]any, mode Mode) (Expression, error) {
	if mode != ModeAssign && mode != ModeAccumulate {
		return Expression{}, fmt.Errorf("unsupported expression mode %v", mode)
	}

	c := &compiler{mode: mode, namer: newNamer()}
	if mode == ModeAccumulate {
		doc = withoutField(doc, AttributeUpdatedAt)
	}
	if err := c.walk(doc, nil); err != nil {
		return Expression{}, err
	}
	if len(c.clauses) == 0 {
		return Expression{}, ErrEmptyExpression
	}

	return Expression{
		Mode:    mode,
		Names:   c.namer.names,
		Values:  c.namer.values,
		Clauses: c.clauses,
	}, nil
}

type compiler struct {
	mode    Mode
	namer   *namer
	clauses []string
}

func (c *compiler) walk(obj map[string]any, path []string) error {
	for _, field := range sortedFields(obj) {
		if err := validateField(field); err != nil {
			return err
		}

		value := obj[field]
		fieldPath := append(path[:len(path):len(path)], field)

		if nested, ok := c.descend(value); ok {
			if err := c.walk(nested, fieldPath); err != nil {
				return err
			}
			continue
		}

		c.emit(fieldPath, value)
	}
	return nil
}

// descend reports whether value is a map the compiler should flatten.
func (c *compiler) descend(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case Whole:
		return v, c.mode == ModeAccumulate
	case map[string]any:
		return v, c.mode == ModeAccumulate || len(v) > 0
	}
	return nil, false
}

func (c *compiler) emit(path []string, value any) {
	if w, ok := value.(Whole); ok {
		value = map[string]any(w)
	}

	// ancestor aliases are bound only once a leaf needs them so that no
	// placeholder is left unused in the request
	target := make([]string, 0, len(path))
	for _, segment := range path[:len(path)-1] {
		target = append(target, c.namer.name(segment))
	}
	nameAlias, valueAlias := c.namer.leaf(path, value)
	target = append(target, nameAlias)

	operand := strings.Join(target, ".")
	if c.mode == ModeAssign {
		c.clauses = append(c.clauses, operand+" = "+valueAlias)
	} else {
		c.clauses = append(c.clauses, operand+" "+valueAlias)
	}
}

func validateField(field string) error {
	if field == "" {
		return fmt.Errorf("%w: empty field name", ErrInvalidField)
	}
	if strings.Contains(field, ".") {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidField, field)
	}
	return nil
}

func sortedFields(obj map[string]any) []string {
	fields := make([]string, 0, len(obj))
	for field := range obj {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return fields
}

func withoutField(obj map[string]any, field string) map[string]any {
	if _, ok := obj[field]; !ok {
		return obj
	}
	out := make(map[string]any, len(obj)-1)
	for k, v := range obj {
		if k != field {
			out[k] = v
		}
	}
	return out
}
