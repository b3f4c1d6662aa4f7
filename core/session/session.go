package session

// Session identifies the authenticated user. Absence of a session is
// represented by a nil pointer wherever one is held.
type Session struct {
	Email string `json:"email"`
	UID   string `json:"uid"`
}
