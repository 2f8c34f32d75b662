package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medibridge/appointment-scheduling/internal/scheduling"
)

type CreateDoctorRequest struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
}

type SlotPayload struct {
	StartTime     string     `json:"start_time"`
	EndTime       string     `json:"end_time"`
	IsBooked      bool       `json:"is_booked"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

type PutAvailabilityRequest struct {
	Date  string        `json:"date"` // YYYY-MM-DD
	Slots []SlotPayload `json:"slots"`
}

type AvailabilityResponse struct {
	DoctorID uuid.UUID     `json:"doctor_id"`
	Date     string        `json:"date"`
	Slots    []SlotPayload `json:"slots"`
}

type OfferResponse struct {
	DoctorID   uuid.UUID     `json:"doctor_id"`
	DoctorName string        `json:"doctor_name"`
	Specialty  string        `json:"specialty"`
	Date       string        `json:"date"`
	Slots      []SlotPayload `json:"slots"`
}

type SearchResponse struct {
	Offers []OfferResponse `json:"offers"`
}

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // HH:MM
	Reason    string `json:"reason"`
}

type CompleteAppointmentRequest struct {
	Notes string `json:"notes"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartsAt  time.Time `json:"starts_at"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Reason    string    `json:"reason"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toSlotPayloads(slots []scheduling.Slot) []SlotPayload {
	out := make([]SlotPayload, len(slots))
	for i, s := range slots {
		out[i] = SlotPayload{
			StartTime:     s.StartTime,
			EndTime:       s.EndTime,
			IsBooked:      s.IsBooked,
			AppointmentID: s.AppointmentID,
		}
	}
	return out
}

func toAvailabilityResponse(availability *scheduling.AvailabilityDay) AvailabilityResponse {
	return AvailabilityResponse{
		DoctorID: availability.DoctorID,
		Date:     availability.Day.Format("2006-01-02"),
		Slots:    toSlotPayloads(availability.Slots),
	}
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		StartsAt:  a.StartsAt,
		Date:      a.Day.Format("2006-01-02"),
		Time:      a.Time,
		Reason:    a.Reason,
		Status:    string(a.Status),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
