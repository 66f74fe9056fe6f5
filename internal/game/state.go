package game

// SessionStatus represents the lifecycle state of a session
type SessionStatus string

const (
	StatusActive   SessionStatus = "active"
	StatusFinished SessionStatus = "finished"
)
