package domain

// Staff is the authenticated user as described by a platform-issued token.
type Staff struct {
	ID          string
	Email       string
	DisplayName string
}
