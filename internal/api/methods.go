package api

import (
	"time"

	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/model"
)

// OK is the result of methods that only acknowledge.
const OK = "ok"

// Request types.
type (
	AddMediatorPublicKeysRequest struct {
		SignedKeyData crypto.SignedData `json:"signedKeyData"`
	}

	GetTokenRequest struct {
		Hash       string `json:"hash"`
		PublicKey  string `json:"publicKey"`
		Encryption string `json:"encryption"`
		ZipCode    string `json:"zipCode"`
		Code       string `json:"code,omitempty"`
	}

	StoreProviderDataRequest struct {
		EncryptedData crypto.ECDHData `json:"encryptedData"`
		Code          string          `json:"code,omitempty"`
	}

	CheckProviderDataResponse struct {
		UnverifiedData *crypto.ECDHData   `json:"unverifiedData,omitempty"`
		VerifiedData   *crypto.SignedData `json:"verifiedData,omitempty"`
	}

	ListProvidersRequest struct {
		Limit int `json:"limit,omitempty"`
	}

	PublishAppointmentsRequest struct {
		Appointments []crypto.SignedData `json:"appointments"`
	}

	GetAppointmentsByZipCodeRequest struct {
		ZipCode string    `json:"zipCode"`
		Radius  int       `json:"radius,omitempty"`
		From    time.Time `json:"from"`
		To      time.Time `json:"to"`
	}

	GetAppointmentRequest struct {
		ID         string `json:"id"`
		ProviderID string `json:"providerID"`
	}

	BookAppointmentRequest struct {
		ProviderID      string            `json:"providerID"`
		ID              string            `json:"id"`
		SignedTokenData crypto.SignedData `json:"signedTokenData"`
		EncryptedData   crypto.ECDHData   `json:"encryptedData"`
	}

	BookAppointmentResponse struct {
		SlotID string `json:"slotID"`
	}

	CancelBookingRequest struct {
		ProviderID      string            `json:"providerID"`
		ID              string            `json:"id"`
		SignedTokenData crypto.SignedData `json:"signedTokenData"`
	}

	SettingsIDRequest struct {
		ID string `json:"id"`
	}
)

// The method catalogue.
var (
	GetKeys                  = Method[Empty, model.SystemKeys]{Name: "getKeys"}
	AddMediatorPublicKeys    = Method[AddMediatorPublicKeysRequest, string]{Name: "addMediatorPublicKeys", Signed: true}
	GetToken                 = Method[GetTokenRequest, crypto.SignedData]{Name: "getToken"}
	StoreProviderData        = Method[StoreProviderDataRequest, string]{Name: "storeProviderData", Signed: true}
	CheckProviderData        = Method[Empty, CheckProviderDataResponse]{Name: "checkProviderData", Signed: true}
	GetPendingProviderData   = Method[ListProvidersRequest, []model.ProviderRecord]{Name: "getPendingProviderData", Signed: true}
	GetVerifiedProviderData  = Method[ListProvidersRequest, []model.ProviderRecord]{Name: "getVerifiedProviderData", Signed: true}
	ConfirmProvider          = Method[model.Confirmation, string]{Name: "confirmProvider", Signed: true, NoRetry: true}
	PublishAppointments      = Method[PublishAppointmentsRequest, string]{Name: "publishAppointments", Signed: true}
	GetProviderAppointments  = Method[Empty, []model.AppointmentRecord]{Name: "getProviderAppointments", Signed: true}
	GetAppointmentsByZipCode = Method[GetAppointmentsByZipCodeRequest, []model.ProviderAppointments]{Name: "getAppointmentsByZipCode"}
	GetAppointment           = Method[GetAppointmentRequest, model.ProviderAppointments]{Name: "getAppointment"}
	BookAppointment          = Method[BookAppointmentRequest, BookAppointmentResponse]{Name: "bookAppointment", Signed: true, NoRetry: true}
	CancelBooking            = Method[CancelBookingRequest, string]{Name: "cancelBooking", Signed: true, NoRetry: true}
	StoreSettings            = Method[model.Settings, string]{Name: "storeSettings"}
	GetSettings              = Method[SettingsIDRequest, crypto.AESData]{Name: "getSettings"}
	DeleteSettings           = Method[SettingsIDRequest, string]{Name: "deleteSettings"}
	ResetDB                  = Method[Empty, string]{Name: "resetDB", Signed: true}
)
