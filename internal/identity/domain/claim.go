package domain

// Well-known claim types. Anything outside this list is an application-defined
// claim attached to a user or role in the directory.
const (
	ClaimTypeSubject = "sub"
	ClaimTypeName    = "name"
	ClaimTypeEmail   = "email"
	ClaimTypeTokenID = "jti"
	ClaimTypeRole    = "role"
)

// ClaimEntry is a single (type, value) fact about a user. Entries are
// immutable and produced fresh per token issuance, never persisted.
type ClaimEntry struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ClaimSet is an ordered, duplicate-free collection of claim entries.
// Insertion order is precedence order: the first entry inserted for a given
// (type, value) pair wins and later duplicates are dropped.
type ClaimSet struct {
	entries []ClaimEntry
	seen    map[ClaimEntry]struct{}
}

func NewClaimSet() *ClaimSet {
	return &ClaimSet{seen: make(map[ClaimEntry]struct{})}
}

// Add appends entries, dropping any (type, value) pair already present.
func (s *ClaimSet) Add(entries ...ClaimEntry) {
	for _, e := range entries {
		if _, ok := s.seen[e]; ok {
			continue
		}
		s.seen[e] = struct{}{}
		s.entries = append(s.entries, e)
	}
}

// Entries returns the entries in insertion order. The returned slice is a
// copy; mutating it does not affect the set.
func (s *ClaimSet) Entries() []ClaimEntry {
	out := make([]ClaimEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the first value recorded for the given claim type.
func (s *ClaimSet) Get(claimType string) (string, bool) {
	for _, e := range s.entries {
		if e.Type == claimType {
			return e.Value, true
		}
	}
	return "", false
}

// Values returns every value recorded for the given claim type, in order.
func (s *ClaimSet) Values(claimType string) []string {
	var out []string
	for _, e := range s.entries {
		if e.Type == claimType {
			out = append(out, e.Value)
		}
	}
	return out
}

func (s *ClaimSet) Len() int { return len(s.entries) }
