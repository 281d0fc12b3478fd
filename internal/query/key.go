package query

import "encoding/json"

// Key identifies a cached query. Keys are ordered segments, e.g.
// Key{"pictures"} for a collection and Key{"pictures", "42"} for one item.
type Key []string

// Hash returns the canonical form of the key, its JSON array encoding.
func (k Key) Hash() string {
	if k == nil {
		k = Key{}
	}
	b, _ := json.Marshal([]string(k))
	return string(b)
}

// HasPrefix reports whether prefix matches the leading segments of k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (k Key) String() string { return k.Hash() }
