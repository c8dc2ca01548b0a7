package model

import "errors"

var ErrConfirmedWithoutDetails = errors.New("confirmed booking has no confirmation details")

// State is the closed set of lifecycle states a booking can be in.
type State interface {
	Status() Status
	isState()
}

type Pending struct{}

type Confirmed struct {
	Details Confirmation
}

type Cancelled struct{}

func (Pending) Status() Status   { return StatusPending }
func (Confirmed) Status() Status { return StatusConfirmed }
func (Cancelled) Status() Status { return StatusCancelled }

func (Pending) isState()   {}
func (Confirmed) isState() {}
func (Cancelled) isState() {}

// State derives the lifecycle state from the stored document.
func (b *Booking) State() (State, error) {
	switch b.Status {
	case StatusPending:
		return Pending{}, nil
	case StatusConfirmed:
		if b.Confirmation == nil || b.Confirmation.ConfirmedDate == "" {
			return nil, ErrConfirmedWithoutDetails
		}
		return Confirmed{Details: *b.Confirmation}, nil
	case StatusCancelled:
		return Cancelled{}, nil
	}
	return nil, errors.New("unknown booking status: " + string(b.Status))
}
