package model

import (
	"cmp"
	"slices"
	"time"

	"github.com/kiebitz/client-go/internal/crypto"
)

// Slot is one bookable unit of an appointment.
type Slot struct {
	ID   string `json:"id"`
	Open bool   `json:"open"`
}

// Appointment is a provider's offer. Only the fields up to Properties are
// signed; Provider and Bookings are attached by readers.
type Appointment struct {
	ID         string            `json:"id"`
	StartAt    time.Time         `json:"startAt"`
	EndAt      time.Time         `json:"endAt"`
	Duration   int               `json:"duration"`
	SlotData   []Slot            `json:"slotData"`
	PublicKey  string            `json:"publicKey"`
	Properties map[string]string `json:"properties,omitempty"`

	Provider *PublicProviderData `json:"provider,omitempty"`
	Bookings []Booking           `json:"bookings,omitempty"`
}

// Signable returns the copy of a that the provider signs.
func (a *Appointment) Signable() Appointment {
	c := *a
	c.Provider = nil
	c.Bookings = nil
	c.SlotData = slices.Clone(a.SlotData)
	for i := range c.SlotData {
		c.SlotData[i].Open = true
	}
	return c
}

// SlotIDs returns the ids of all slots in order.
func (a *Appointment) SlotIDs() []string {
	ids := make([]string, len(a.SlotData))
	for i, s := range a.SlotData {
		ids[i] = s.ID
	}
	return ids
}

// Slot returns the slot with the given id.
func (a *Appointment) Slot(id string) (Slot, bool) {
	for _, s := range a.SlotData {
		if s.ID == id {
			return s, true
		}
	}
	return Slot{}, false
}

// MarkBooked closes every slot whose id is in booked.
func (a *Appointment) MarkBooked(booked []string) {
	for i := range a.SlotData {
		a.SlotData[i].Open = !slices.Contains(booked, a.SlotData[i].ID)
	}
}

// SortAppointments orders appointments by start time, then id.
func SortAppointments(as []Appointment) {
	slices.SortFunc(as, func(a, b Appointment) int {
		if c := a.StartAt.Compare(b.StartAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// AppointmentRecord is an appointment as the relay stores and returns it.
// BookedSlots is the anonymous view of which slots are taken; Bookings is
// only present for the owning provider.
type AppointmentRecord struct {
	SignedAppointment crypto.SignedData  `json:"signedAppointment"`
	BookedSlots       []string           `json:"bookedSlots,omitempty"`
	Bookings          []EncryptedBooking `json:"bookings,omitempty"`
}

// ProviderAppointments groups a provider's published appointments with the
// mediator-signed records a user needs to trust them.
type ProviderAppointments struct {
	Provider     crypto.SignedData   `json:"provider"`
	KeyData      crypto.SignedData   `json:"keyData"`
	Appointments []AppointmentRecord `json:"appointments"`
}

// EncryptedBooking is a booking as stored on the relay. EncryptedData opens
// only with the provider's encryption key.
type EncryptedBooking struct {
	ID            string          `json:"id"`
	PublicKey     string          `json:"publicKey"`
	Token         string          `json:"token"`
	EncryptedData crypto.ECDHData `json:"encryptedData"`
}

// BookingData is the plaintext a user seals to the provider.
type BookingData struct {
	SignedToken crypto.SignedData `json:"signedToken"`
	UserToken   UserToken         `json:"userToken"`
}

// Booking is a decrypted booking as the provider sees it.
type Booking struct {
	ID        string      `json:"id"`
	PublicKey string      `json:"publicKey"`
	Token     string      `json:"token"`
	Data      BookingData `json:"data"`
}

// UserBooking is what a user keeps locally after booking a slot.
type UserBooking struct {
	ProviderID    string    `json:"providerID"`
	AppointmentID string    `json:"appointmentID"`
	SlotID        string    `json:"slotID"`
	StartAt       time.Time `json:"startAt"`
}
