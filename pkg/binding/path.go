package binding

import (
	"strconv"
	"strings"

	sferrors "github.com/vango-dev/storefront/internal/errors"
)

// TokenKind identifies the type of path token.
type TokenKind int

const (
	TokenKey   TokenKind = iota // Map key or struct field: name
	TokenIndex                  // Slice/array index: [0]
)

// Token is a single step of a binding path.
type Token struct {
	Kind  TokenKind
	Key   string // for TokenKey
	Index int    // for TokenIndex (0-based)
}

// Path is a parsed binding path.
type Path struct {
	Tokens []Token
	Raw    string
}

// String reconstructs the canonical path string.
func (p Path) String() string {
	var b strings.Builder
	for i, t := range p.Tokens {
		switch t.Kind {
		case TokenKey:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(t.Key)
		case TokenIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(t.Index))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// ParsePath parses a path of the form segment(.segment|[index])*.
// Examples:
//   - "store.name" -> key.key
//   - "product.variants[0].price" -> key.key[index].key
//   - "cart.items[2][0]" -> key.key[index][index]
//
// Empty segments, unterminated brackets, and non-numeric or negative indexes
// are rejected with ErrInvalidPath.
func ParsePath(raw string) (Path, error) {
	p := Path{Raw: raw}
	if raw == "" {
		return p, invalidPath(raw, "path is empty")
	}

	i := 0
	expectKey := true
	for i < len(raw) {
		if expectKey {
			start := i
			for i < len(raw) && raw[i] != '.' && raw[i] != '[' && raw[i] != ']' {
				i++
			}
			if i == start {
				return Path{Raw: raw}, invalidPath(raw, "empty segment at offset %d", start)
			}
			p.Tokens = append(p.Tokens, Token{Kind: TokenKey, Key: raw[start:i]})
			expectKey = false
			continue
		}

		switch raw[i] {
		case '.':
			i++
			if i == len(raw) {
				return Path{Raw: raw}, invalidPath(raw, "path ends with '.'")
			}
			expectKey = true
		case '[':
			end := strings.IndexByte(raw[i:], ']')
			if end < 0 {
				return Path{Raw: raw}, invalidPath(raw, "unterminated '[' at offset %d", i)
			}
			digits := raw[i+1 : i+end]
			idx, err := parseIndex(digits)
			if err != nil {
				return Path{Raw: raw}, invalidPath(raw, "index %q is not a non-negative integer", digits)
			}
			p.Tokens = append(p.Tokens, Token{Kind: TokenIndex, Index: idx})
			i += end + 1
		default:
			return Path{Raw: raw}, invalidPath(raw, "unexpected %q at offset %d", raw[i], i)
		}
	}
	return p, nil
}

// MustParsePath is ParsePath that panics on malformed input. Use it only for
// constant paths.
func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func parseIndex(s string) (int, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

func invalidPath(raw, format string, args ...any) error {
	return sferrors.New("E101").
		WithDetailf("%q: "+format, append([]any{raw}, args...)...)
}
