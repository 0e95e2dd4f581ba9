package domain

// User is the narrow view of a directory user the session engine needs: an
// opaque identifier plus the identity facts that become standard claims.
// Roles and attached claims are fetched from the directory per issuance, not
// carried here, so the engine never depends on a concrete user-record shape.
type User struct {
	ID    string
	Name  string
	Email string
}
