package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	metrics "github.com/medibridge/appointment-scheduling/internal/observability/metrics"
	redisclient "github.com/medibridge/appointment-scheduling/internal/redis"
	"github.com/medibridge/appointment-scheduling/internal/scheduling"
)

// Service interfaces consumed by the handlers. Declared here so tests
// can substitute stubs for the concrete scheduling services.

type MatcherService interface {
	FindAvailable(ctx context.Context, specialty string, urgency scheduling.UrgencyLevel, preferredAt time.Time, timePreference bool) ([]scheduling.Offer, error)
}

type BookingService interface {
	Book(ctx context.Context, patientID, doctorID uuid.UUID, date, timeOfDay, reason string) (*scheduling.Appointment, error)
	Get(ctx context.Context, appointmentID uuid.UUID) (*scheduling.Appointment, error)
	Cancel(ctx context.Context, appointmentID uuid.UUID) (*scheduling.Appointment, error)
	Complete(ctx context.Context, appointmentID uuid.UUID, notes string) (*scheduling.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]scheduling.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]scheduling.Appointment, error)
}

type CalendarService interface {
	Get(ctx context.Context, doctorID uuid.UUID, day time.Time) (*scheduling.AvailabilityDay, error)
	Put(ctx context.Context, doctorID uuid.UUID, day time.Time, slots []scheduling.Slot) (*scheduling.AvailabilityDay, error)
}

type DirectoryService interface {
	Create(ctx context.Context, name, specialty string) (*scheduling.Doctor, error)
	GetByID(ctx context.Context, id uuid.UUID) (*scheduling.Doctor, error)
	FindBySpecialty(ctx context.Context, specialty string) ([]scheduling.Doctor, error)
}

// Doctor directory

func createDoctorHandler(directory DirectoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctor, err := directory.Create(r.Context(), req.Name, req.Specialty)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, DoctorResponse{ID: doctor.ID, Name: doctor.Name, Specialty: doctor.Specialty})
	}
}

func listDoctorsHandler(directory DirectoryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		specialty := r.URL.Query().Get("specialty")
		doctors, err := directory.FindBySpecialty(r.Context(), specialty)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			resp = append(resp, DoctorResponse{ID: d.ID, Name: d.Name, Specialty: d.Specialty})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Availability calendar

func getAvailabilityHandler(calendar CalendarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "id", "doctor id")
		if !ok {
			return
		}

		day, err := scheduling.ParseDay("date", r.URL.Query().Get("date"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		availability, err := calendar.Get(r.Context(), doctorID, day)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAvailabilityResponse(availability))
	}
}

func putAvailabilityHandler(calendar CalendarService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseUUIDParam(w, r, "id", "doctor id")
		if !ok {
			return
		}

		var req PutAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		day, err := scheduling.ParseDay("date", req.Date)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		slots := make([]scheduling.Slot, len(req.Slots))
		for i, s := range req.Slots {
			slots[i] = scheduling.Slot{StartTime: s.StartTime, EndTime: s.EndTime}
		}

		availability, err := calendar.Put(r.Context(), doctorID, day, slots)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAvailabilityResponse(availability))
	}
}

// Search

func searchHandler(matcher MatcherService, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		specialty := query.Get("specialty")
		urgency, err := scheduling.ParseUrgency(query.Get("urgency"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		preferredAt, timePreference, err := parsePreferredDateTime(query.Get("preferredDateTime"))
		if err != nil {
			handleDomainError(w, err)
			return
		}

		start := time.Now()
		offers, err := matcher.FindAvailable(r.Context(), specialty, urgency, preferredAt, timePreference)
		m.ObserveSearch(string(urgency), time.Since(start).Seconds())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := SearchResponse{Offers: make([]OfferResponse, 0, len(offers))}
		for _, offer := range offers {
			resp.Offers = append(resp.Offers, OfferResponse{
				DoctorID:   offer.DoctorID,
				DoctorName: offer.DoctorName,
				Specialty:  offer.Specialty,
				Date:       offer.Day.Format("2006-01-02"),
				Slots:      toSlotPayloads(offer.Slots),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// parsePreferredDateTime accepts RFC3339 (a real time-of-day
// preference), a bare date (no time preference), or nothing (search
// from today, unconstrained).
func parsePreferredDateTime(raw string) (time.Time, bool, error) {
	if raw == "" {
		return time.Now().UTC(), false, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
		return t, false, nil
	}
	return time.Time{}, false, &scheduling.ValidationError{
		Field:  "preferredDateTime",
		Reason: "must be RFC3339 or YYYY-MM-DD",
	}
}

// Booking

func bookAppointmentHandler(bookings BookingService, m *metrics.SchedulingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		appt, err := bookings.Book(r.Context(), patientID, doctorID, req.Date, req.Time, req.Reason)
		m.ObserveBooking(bookingOutcome(err))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(bookings BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id", "appointment id")
		if !ok {
			return
		}

		appt, err := bookings.Get(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(bookings BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id", "appointment id")
		if !ok {
			return
		}

		appt, err := bookings.Cancel(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(bookings BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id", "appointment id")
		if !ok {
			return
		}

		var req CompleteAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := bookings.Complete(r.Context(), id, req.Notes)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listPatientAppointmentsHandler(bookings BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id", "patient id")
		if !ok {
			return
		}

		appts, err := bookings.ListByPatient(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func listDoctorAppointmentsHandler(bookings BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseUUIDParam(w, r, "id", "doctor id")
		if !ok {
			return
		}

		appts, err := bookings.ListByDoctor(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
	}
}

func toAppointmentResponses(appts []scheduling.Appointment) []AppointmentResponse {
	resp := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		resp = append(resp, toAppointmentResponse(&appts[i]))
	}
	return resp
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", label+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func bookingOutcome(err error) string {
	var vErr *scheduling.ValidationError
	switch {
	case err == nil:
		return "confirmed"
	case errors.As(err, &vErr):
		return "validation_error"
	case errors.Is(err, scheduling.ErrDoctorUnavailable):
		return "doctor_unavailable"
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, scheduling.ErrSlotContended):
		return "contended"
	default:
		return "error"
	}
}

// handleDomainError maps domain failures onto HTTP statuses.
func handleDomainError(w http.ResponseWriter, err error) {
	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "invalid_request", vErr.Error())
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAvailabilityNotFound):
		writeError(w, http.StatusNotFound, "availability_not_found", err.Error())
	case errors.Is(err, scheduling.ErrDoctorUnavailable):
		writeError(w, http.StatusConflict, "doctor_unavailable", err.Error())
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, scheduling.ErrSlotContended),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, scheduling.ErrBookedSlotRemoval):
		writeError(w, http.StatusConflict, "booked_slot_removal", err.Error())
	case errors.Is(err, scheduling.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case scheduling.IsStoreError(err):
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "storage is temporarily unavailable, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
