package cloudlydb

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// CursorDelimiter separates the partition and sort key inside a cursor.
const CursorDelimiter = "||"

// EncodeCursor encodes the key of the last item of a page into an opaque,
// URL-safe token. Keys that are empty or could not be split back apart
// unambiguously are rejected.
func EncodeCursor(pk, sk string) (string, error) {
	if pk == "" || sk == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidCursor)
	}
	if strings.Contains(pk, CursorDelimiter) || strings.HasSuffix(pk, "|") ||
		strings.Contains(sk, CursorDelimiter) || strings.HasPrefix(sk, "|") {
		return "", fmt.Errorf("%w: key contains the cursor delimiter", ErrInvalidCursor)
	}
	return base64.URLEncoding.EncodeToString([]byte(pk + CursorDelimiter + sk)), nil
}

// DecodeCursor decodes a token produced by EncodeCursor.
func DecodeCursor(token string) (pk, sk string, err error) {
	raw, err := base64.URLEncoding.Strict().DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if !utf8.Valid(raw) {
		return "", "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidCursor)
	}
	parts := strings.Split(string(raw), CursorDelimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: expected two key parts", ErrInvalidCursor)
	}
	return parts[0], parts[1], nil
}
