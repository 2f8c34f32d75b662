package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Matcher is the availability search engine. It scans a multi-day
// window across every doctor of a specialty and returns ranked offers,
// with search breadth governed by the urgency tier.
//
// Search is read-only and tolerates staleness: a slot observed free
// here may be claimed before the caller books it. That race is
// resolved at booking time, never here.
type Matcher struct {
	directory       *Directory
	calendar        *Calendar
	windowDays      int
	preferredWindow time.Duration
}

func NewMatcher(directory *Directory, calendar *Calendar, windowDays int, preferredWindow time.Duration) *Matcher {
	if windowDays < 1 {
		windowDays = 1
	}
	return &Matcher{
		directory:       directory,
		calendar:        calendar,
		windowDays:      windowDays,
		preferredWindow: preferredWindow,
	}
}

// FindAvailable returns offers for the given specialty within the
// search window starting at preferredAt's date. When timePreference is
// true, only slots starting within the preferred-time window around
// preferredAt's time of day are considered. An empty result is a
// normal outcome, not an error.
func (m *Matcher) FindAvailable(ctx context.Context, specialty string, urgency UrgencyLevel, preferredAt time.Time, timePreference bool) ([]Offer, error) {
	if err := validateRequired("specialty", specialty); err != nil {
		return nil, err
	}
	if _, err := ParseUrgency(string(urgency)); err != nil {
		return nil, err
	}

	policy := PolicyFor(urgency)
	startDay := NormalizeDay(preferredAt)

	doctors, err := m.directory.FindBySpecialty(ctx, specialty)
	if err != nil {
		return nil, fmt.Errorf("find doctors: %w", err)
	}
	if len(doctors) == 0 {
		return []Offer{}, nil
	}

	preferredMinute := preferredAt.UTC().Hour()*60 + preferredAt.UTC().Minute()
	windowMinutes := int(m.preferredWindow / time.Minute)

	offers := []Offer{}
	for i := 0; i < m.windowDays; i++ {
		day := startDay.AddDate(0, 0, i)

		for _, doctor := range doctors {
			availability, err := m.calendar.Get(ctx, doctor.ID, day)
			if errors.Is(err, ErrAvailabilityNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("load availability for doctor %s on %s: %w", doctor.ID, day.Format("2006-01-02"), err)
			}

			relevant := relevantSlots(availability.Slots, timePreference, preferredMinute, windowMinutes)
			if len(relevant) == 0 {
				continue
			}

			SortSlots(relevant)
			if len(relevant) > policy.MaxSlotsPerOffer {
				relevant = relevant[:policy.MaxSlotsPerOffer]
			}

			offers = append(offers, Offer{
				DoctorID:   doctor.ID,
				DoctorName: doctor.Name,
				Specialty:  doctor.Specialty,
				Day:        day,
				Slots:      relevant,
			})

			// One acceptable offer is enough for the greedy tiers.
			if policy.StopAfterFirstOffer {
				return offers, nil
			}
		}
	}

	return offers, nil
}

// relevantSlots filters to unbooked slots, optionally keeping only
// those starting within windowMinutes of the preferred time of day.
func relevantSlots(slots []Slot, timePreference bool, preferredMinute, windowMinutes int) []Slot {
	relevant := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.IsBooked {
			continue
		}
		if timePreference {
			start, err := ClockMinutes(slot.StartTime)
			if err != nil {
				continue
			}
			diff := start - preferredMinute
			if diff < 0 {
				diff = -diff
			}
			if diff > windowMinutes {
				continue
			}
		}
		relevant = append(relevant, slot)
	}
	return relevant
}
