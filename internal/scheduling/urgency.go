package scheduling

// SearchPolicy controls how greedy the availability search is for one
// urgency tier: whether the scan halts at the first non-empty offer
// and how many slots a single offer may carry.
type SearchPolicy struct {
	StopAfterFirstOffer bool
	MaxSlotsPerOffer    int
}

// PolicyFor maps an urgency tier to its search policy. The mapping is
// kept separate from the matcher so the tier-to-breadth decision can
// change without touching search logic.
func PolicyFor(urgency UrgencyLevel) SearchPolicy {
	switch urgency {
	case UrgencyEmergency:
		return SearchPolicy{StopAfterFirstOffer: true, MaxSlotsPerOffer: 1}
	case UrgencyUrgent:
		return SearchPolicy{StopAfterFirstOffer: true, MaxSlotsPerOffer: 3}
	default:
		return SearchPolicy{StopAfterFirstOffer: false, MaxSlotsPerOffer: 5}
	}
}

// ParseUrgency validates a caller-supplied urgency string.
func ParseUrgency(value string) (UrgencyLevel, error) {
	switch UrgencyLevel(value) {
	case UrgencyEmergency, UrgencyUrgent, UrgencyRoutine:
		return UrgencyLevel(value), nil
	default:
		return "", &ValidationError{Field: "urgency", Reason: "must be one of emergency, urgent, routine"}
	}
}
