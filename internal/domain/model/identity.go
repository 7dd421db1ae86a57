package model

// Identity is the authenticated user principal for a session. It is supplied
// entirely by the external auth provider and never mutated by linkdeck.
type Identity struct {
	ID    string // Provider-assigned user ID.
	Email string
	Name  string // Optional display name; may be empty.
}
