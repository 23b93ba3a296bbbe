package domain

// Identity is the resolved user identity of a connection. It is set
// exactly once, when the bearer credential is verified at connect time,
// and never changes for the life of the connection.
type Identity struct {
	UserID      string
	DisplayName string
}
