package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/medibridge/appointment-scheduling/internal/redis"
)

// Calendar is the persistence abstraction for per-(doctor, day) slot
// sets. Writes are serialized per day through the same lock that
// guards booking, so a schedule resubmission cannot race a claim.
type Calendar struct {
	repo   Repository
	locker redisclient.DayLocker
}

func NewCalendar(repo Repository, locker redisclient.DayLocker) *Calendar {
	return &Calendar{repo: repo, locker: locker}
}

// Get returns the slot set a doctor has published for a date, or
// ErrAvailabilityNotFound when nothing is published.
func (c *Calendar) Get(ctx context.Context, doctorID uuid.UUID, day time.Time) (*AvailabilityDay, error) {
	if err := validateID("doctor_id", doctorID); err != nil {
		return nil, err
	}
	return c.repo.GetAvailabilityDay(ctx, doctorID, NormalizeDay(day))
}

// Put replaces the entire slot set for (doctorID, day) with the
// submitted one, merging by time range: a submitted slot whose
// [start,end) matches an existing booked slot keeps that slot's booked
// state and appointment link. Dropping a currently booked slot is
// rejected with ErrBookedSlotRemoval instead of silently unbooking the
// patient.
func (c *Calendar) Put(ctx context.Context, doctorID uuid.UUID, day time.Time, slots []Slot) (*AvailabilityDay, error) {
	if err := validateID("doctor_id", doctorID); err != nil {
		return nil, err
	}
	if err := ValidateSlots(slots); err != nil {
		return nil, err
	}

	day = NormalizeDay(day)

	var result *AvailabilityDay
	err := c.locker.WithDayLock(ctx, doctorID, day, func(lockCtx context.Context) error {
		existing, err := c.repo.GetAvailabilityDay(lockCtx, doctorID, day)
		if err != nil && !errors.Is(err, ErrAvailabilityNotFound) {
			return err
		}

		merged, err := mergeSlots(existing, slots)
		if err != nil {
			return err
		}

		result, err = c.repo.ReplaceAvailabilityDay(lockCtx, &AvailabilityDay{
			DoctorID: doctorID,
			Day:      day,
			Slots:    merged,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// mergeSlots carries booked state from the existing day onto the
// submitted slot set. Booked flags on the submission itself are
// ignored; only the stored calendar decides what is booked.
func mergeSlots(existing *AvailabilityDay, submitted []Slot) ([]Slot, error) {
	merged := make([]Slot, len(submitted))
	for i, slot := range submitted {
		merged[i] = Slot{StartTime: slot.StartTime, EndTime: slot.EndTime}
	}

	if existing != nil {
		byRange := make(map[string]int, len(merged))
		for i, slot := range merged {
			byRange[slot.StartTime+"-"+slot.EndTime] = i
		}

		for _, old := range existing.Slots {
			if !old.IsBooked {
				continue
			}
			i, ok := byRange[old.StartTime+"-"+old.EndTime]
			if !ok {
				return nil, fmt.Errorf("slot %s-%s: %w", old.StartTime, old.EndTime, ErrBookedSlotRemoval)
			}
			merged[i].IsBooked = true
			merged[i].AppointmentID = old.AppointmentID
		}
	}

	SortSlots(merged)
	return merged, nil
}
