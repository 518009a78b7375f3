// Package booking derives appointment and booking status from slot and
// booking counts, and classifies booking failures.
package booking

import (
	"errors"

	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/model"
)

// AppointmentStatus is derived from an appointment's slots and bookings.
type AppointmentStatus string

const (
	Open     AppointmentStatus = "OPEN"
	Canceled AppointmentStatus = "CANCELED"
	Full     AppointmentStatus = "FULL"
	Bookings AppointmentStatus = "BOOKINGS"
)

// AppointmentStatusOf classifies an appointment with slotCount slots and
// bookedCount bookings. Combinations outside the table are an
// UnexpectedError.
func AppointmentStatusOf(slotCount, bookedCount int) (AppointmentStatus, error) {
	switch {
	case slotCount == 0 && bookedCount == 0:
		return Canceled, nil
	case slotCount > 0 && bookedCount == 0:
		return Open, nil
	case slotCount > 0 && bookedCount == slotCount:
		return Full, nil
	case slotCount > 0 && bookedCount > 0 && bookedCount < slotCount:
		return Bookings, nil
	}
	return "", apierrors.Unexpectedf("impossible appointment state: %d slots, %d bookings", slotCount, bookedCount)
}

// StatusOf classifies a with its attached bookings.
func StatusOf(a *model.Appointment) (AppointmentStatus, error) {
	return AppointmentStatusOf(len(a.SlotData), len(a.Bookings))
}

// BookingStatus is what a user learns about a held booking.
type BookingStatus string

const (
	Valid            BookingStatus = "VALID"
	UserCanceled     BookingStatus = "USER_CANCELED"
	ProviderCanceled BookingStatus = "PROVIDER_CANCELED"
	Unknown          BookingStatus = "UNKNOWN"
)

// BookingStatusOf finds slotID in a freshly fetched appointment. A closed
// slot is still held; an open slot was given back; a missing slot was
// removed by the provider.
func BookingStatusOf(a *model.Appointment, slotID string) BookingStatus {
	if a == nil || slotID == "" {
		return Unknown
	}
	slot, ok := a.Slot(slotID)
	switch {
	case !ok:
		return ProviderCanceled
	case slot.Open:
		return UserCanceled
	default:
		return Valid
	}
}

// ClassifyBookingError maps a 401 from bookAppointment to a
// DoubleBookingError. Other errors pass through.
func ClassifyBookingError(appointmentID string, err error) error {
	if err == nil {
		return nil
	}
	var te *apierrors.TransportError
	if errors.As(err, &te) && te.Code == 401 {
		return &apierrors.DoubleBookingError{AppointmentID: appointmentID, Err: err}
	}
	return err
}
