package query

// Kind classifies a compiled query token.
type Kind int

const (
	KindWord Kind = iota
	KindNot
	KindAdjacency
)

const (
	notMarker       = "~"
	adjacencyMarker = "^"
)

func (k Kind) String() string {
	switch k {
	case KindWord:
		return "WORD"
	case KindNot:
		return "NOT"
	case KindAdjacency:
		return "ADJACENCY"
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets Kind appear by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Token is a single classified unit of a compiled query.
type Token struct {
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
}

// Classify maps a lower-cased piece of the query onto a Token. Only the
// exact strings "^" and "~" are operators.
func Classify(text string) Token {
	switch text {
	case adjacencyMarker:
		return Token{Text: text, Kind: KindAdjacency}
	case notMarker:
		return Token{Text: text, Kind: KindNot}
	default:
		return Token{Text: text, Kind: KindWord}
	}
}

// IsWord reports whether the token is a plain search term.
func (t Token) IsWord() bool { return t.Kind == KindWord }
