package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/model"
)

func TestAppointmentStatusOf(t *testing.T) {
	tests := []struct {
		name    string
		slots   int
		booked  int
		want    AppointmentStatus
		wantErr bool
	}{
		{"canceled", 0, 0, Canceled, false},
		{"open", 5, 0, Open, false},
		{"full", 5, 5, Full, false},
		{"partially booked", 5, 3, Bookings, false},
		{"single slot full", 1, 1, Full, false},
		{"overbooked", 5, 6, "", true},
		{"bookings without slots", 0, 2, "", true},
		{"negative slots", -1, 0, "", true},
		{"negative bookings", 3, -1, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AppointmentStatusOf(tt.slots, tt.booked)
			if tt.wantErr {
				if !errors.Is(err, apierrors.ErrUnexpected) {
					t.Errorf("AppointmentStatusOf(%d, %d) error = %v, want ErrUnexpected", tt.slots, tt.booked, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AppointmentStatusOf(%d, %d) error = %v", tt.slots, tt.booked, err)
			}
			if got != tt.want {
				t.Errorf("AppointmentStatusOf(%d, %d) = %s, want %s", tt.slots, tt.booked, got, tt.want)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	a := &model.Appointment{
		SlotData: []model.Slot{{ID: "s1"}, {ID: "s2"}},
		Bookings: []model.Booking{{ID: "s1"}},
	}
	got, err := StatusOf(a)
	if err != nil {
		t.Fatalf("StatusOf() error = %v", err)
	}
	if got != Bookings {
		t.Errorf("StatusOf() = %s, want %s", got, Bookings)
	}
}

func TestBookingStatusOf(t *testing.T) {
	a := &model.Appointment{
		SlotData: []model.Slot{
			{ID: "held", Open: false},
			{ID: "returned", Open: true},
		},
	}

	tests := []struct {
		name        string
		appointment *model.Appointment
		slotID      string
		want        BookingStatus
	}{
		{"slot closed", a, "held", Valid},
		{"slot open again", a, "returned", UserCanceled},
		{"slot removed", a, "gone", ProviderCanceled},
		{"all slots removed", &model.Appointment{}, "held", ProviderCanceled},
		{"no slot id", a, "", Unknown},
		{"no appointment", nil, "held", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BookingStatusOf(tt.appointment, tt.slotID); got != tt.want {
				t.Errorf("BookingStatusOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyBookingError(t *testing.T) {
	unauthorized := fmt.Errorf("book: %w", &apierrors.TransportError{Method: "bookAppointment", Code: 401})
	serverError := &apierrors.TransportError{Method: "bookAppointment", Code: 500}
	network := &apierrors.NetworkError{Err: errors.New("refused")}

	if ClassifyBookingError("a1", nil) != nil {
		t.Error("ClassifyBookingError(nil) should be nil")
	}

	err := ClassifyBookingError("a1", unauthorized)
	if !errors.Is(err, apierrors.ErrDoubleBooking) {
		t.Errorf("ClassifyBookingError(401) = %v, want ErrDoubleBooking", err)
	}
	var dbe *apierrors.DoubleBookingError
	if !errors.As(err, &dbe) || dbe.AppointmentID != "a1" {
		t.Errorf("ClassifyBookingError(401) = %v, want DoubleBookingError for a1", err)
	}

	for _, other := range []error{serverError, network} {
		if got := ClassifyBookingError("a1", other); got != other {
			t.Errorf("ClassifyBookingError(%v) = %v, want unchanged", other, got)
		}
	}
}
