package state

// Store holds one session value per user.
// Implementations are safe for concurrent use.
type Store[S any] interface {
	// Get returns the session of a user. ok is false when none is stored or it expired.
	Get(userID int64) (session S, ok bool)
	// Set replaces the session of a user.
	Set(userID int64, session S)
	// Clear removes the session of a user.
	Clear(userID int64)
	// Len reports the number of stored sessions.
	Len() int
}
