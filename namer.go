package cloudlydb

import (
	"fmt"
	"strings"
)

// namer allocates expression attribute placeholders for a single compile.
// Aliases are stable: asking for the same attribute name or the same leaf
// path twice returns the same placeholder.
type namer struct {
	names  map[string]string // "#alias" -> attribute name
	values map[string]any    // ":alias" -> value
	leaves map[string]string // joined path -> token
}

func newNamer() *namer {
	return &namer{
		names:  make(map[string]string),
		values: make(map[string]any),
		leaves: make(map[string]string),
	}
}

// name returns the "#alias" placeholder for a single attribute name segment.
func (n *namer) name(attr string) string {
	base := "#" + aliasToken(attr)
	alias := base
	for i := 1; ; i++ {
		bound, taken := n.names[alias]
		if !taken || bound == attr {
			n.names[alias] = attr
			return alias
		}
		alias = fmt.Sprintf("%s_%d", base, i)
	}
}

// leaf binds a name placeholder and a value placeholder that share the
// flattened token of path. The name placeholder resolves to the last segment.
func (n *namer) leaf(path []string, value any) (string, string) {
	key := strings.Join(path, "\x00")
	if token, ok := n.leaves[key]; ok {
		n.values[":"+token] = value
		return "#" + token, ":" + token
	}

	attr := path[len(path)-1]
	base := aliasToken(strings.Join(path, ""))
	token := base
	for i := 1; ; i++ {
		bound, nameTaken := n.names["#"+token]
		_, valueTaken := n.values[":"+token]
		if (!nameTaken || bound == attr) && !valueTaken {
			break
		}
		token = fmt.Sprintf("%s_%d", base, i)
	}

	n.leaves[key] = token
	n.names["#"+token] = attr
	n.values[":"+token] = value
	return "#" + token, ":" + token
}

// aliasToken maps s onto the characters DynamoDB accepts in a placeholder.
// Tokens never start with a digit so they cannot clash with the positional
// placeholders (#0, :0) of the SDK expression builder.
func aliasToken(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 1)
	if s != "" && s[0] >= '0' && s[0] <= '9' {
		b.WriteByte('_')
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
