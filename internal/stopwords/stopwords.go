// Package stopwords holds the fixed stop-word list shared by the query
// compiler and the statistics tokenizer.
package stopwords

// Set is an immutable set of stop words. The zero value contains nothing.
type Set struct {
	words map[string]struct{}
}

// Default is the process-wide stop-word set.
var Default = New(
	"a", "an", "and", "are", "but", "did", "do", "does", "for",
	"had", "has", "is", "it", "its", "of", "or", "that", "the",
	"this", "to", "were", "which", "with",
)

// New builds a Set from the given words. Matching is exact and
// case-sensitive; callers lower-case before asking.
func New(words ...string) Set {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return Set{words: m}
}

// Contains reports whether word is exactly one of the stop words.
func (s Set) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Len returns the number of stop words in the set.
func (s Set) Len() int {
	return len(s.words)
}

// Words returns the stop words in no particular order.
func (s Set) Words() []string {
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	return out
}
