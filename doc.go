// Package kiebitz is a Go client for the Kiebitz appointment-booking
// protocol.
//
// Four pseudonymous roles exchange signed and selectively encrypted records
// through an untrusted JSON-RPC relay:
//
//   - [Admin] holds the root key, authorizes mediators and issues the
//     system keys.
//   - [Mediator] reads submitted provider data and confirms providers.
//   - [Provider] submits its data, waits for confirmation, and publishes
//     appointments.
//   - [User] obtains a queue token, searches appointments and books a slot.
//
// The relay never sees plaintext personal data and cannot forge any actor's
// statements: provider data is encrypted to the mediators, bookings to the
// provider, and every record a reader relies on is signed by a key the
// reader already trusts.
//
// Basic usage:
//
//	user, err := kiebitz.NewUser(ctx, kiebitz.WithBaseURL("https://relay.example.com"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := user.GetToken(ctx, kiebitz.ContactData{Email: "me@example.com"}, "10115"); err != nil {
//	    log.Fatal(err)
//	}
//
//	appointments, err := user.Appointments(ctx, kiebitz.SearchQuery{ZipCode: "10115"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	booking, err := user.Book(ctx, appointments[0].Provider.ID, appointments[0].ID)
//	if errors.Is(err, kiebitz.ErrDoubleBooking) {
//	    // the token already holds a booking
//	}
//
// Role state (keys, tokens, bookings) is kept in a [Store]. The default is
// in memory; use [WithStore] with [OpenStore] to persist it.
//
// # Backups
//
// Backups are encrypted under a human-readable secret from [GenerateSecret].
// A provider exports its keys with [Provider.ExportBackup] and mirrors its
// data to the backup relay with [Provider.SyncBackup]. A user stores its
// token and booking with [User.Backup] and gets them back with
// [RestoreUser]. The relay only sees an id derived from the secret.
package kiebitz
