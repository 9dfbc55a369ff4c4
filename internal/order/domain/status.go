package domain

// Status is the lifecycle state of an order. An order starts Pending and
// moves forward only along the edges below; Delivered, Failed and Cancelled
// are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// CanTransitionTo reports whether the edge from s to next exists in the
// lifecycle graph. Self-transitions are not edges; idempotent re-delivery of
// payment confirmations is handled a level up.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}

	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Editable reports whether lines may still be added to an order in this
// state.
func (s Status) Editable() bool {
	return s == StatusPending || s == StatusProcessing
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusFailed, StatusCancelled:
		return true
	}

	return false
}
