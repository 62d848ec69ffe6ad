package application

import "time"

// Principal is the caller identity resolved by the transport. Only CanManage
// principals may change facilities, equipment or bookings.
type Principal struct {
	Subject   string
	CanManage bool
}

// TimeRange is a half-open [From, To) interval.
type TimeRange struct {
	From time.Time
	To   time.Time
}

func (r TimeRange) validate() *ValidationError {
	vErr := &ValidationError{}
	if r.From.IsZero() {
		vErr.add("from", "from is required")
	}
	if r.To.IsZero() {
		vErr.add("to", "to is required")
	}
	if !vErr.HasErrors() && !r.From.Before(r.To) {
		vErr.add("to", "to must be after from")
	}
	return vErr
}
