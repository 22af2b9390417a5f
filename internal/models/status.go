package models

// Status is the lifecycle state of a waste job.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusClaimed   Status = "claimed"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusClaimed, StatusCompleted:
		return true
	}
	return false
}

// Next returns the only status s may move to. Completed is terminal.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusDraft:
		return StatusActive, true
	case StatusActive:
		return StatusClaimed, true
	case StatusClaimed:
		return StatusCompleted, true
	}
	return "", false
}

// ParseStatus validates a status name received from a caller.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}
