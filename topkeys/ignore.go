package topkeys

import (
	"fmt"

	"github.com/k-sone/critbitgo"
)

// prefixSet matches keys against a fixed set of prefixes. It is built once
// and only read afterwards, so lookups need no lock.
type prefixSet struct {
	trie *critbitgo.Trie
}

func newPrefixSet(prefixes []string) (*prefixSet, error) {
	if len(prefixes) == 0 {
		return nil, nil
	}
	trie := critbitgo.NewTrie()
	for _, p := range prefixes {
		if p == "" {
			return nil, fmt.Errorf("%w: empty ignore prefix", ErrInvalidConfiguration)
		}
		trie.Insert([]byte(p), true)
	}
	return &prefixSet{trie: trie}, nil
}

// match reports whether key starts with any prefix of the set.
func (p *prefixSet) match(key []byte) bool {
	if p == nil {
		return false
	}
	_, _, ok := p.trie.LongestPrefix(key)
	return ok
}
