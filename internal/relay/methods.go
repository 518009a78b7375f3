package relay

import (
	"cmp"
	"context"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/model"
)

func (r *Relay) getKeys(_ context.Context, _ string, _ api.Empty) (model.SystemKeys, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return model.SystemKeys{
		RootKey:         r.rootKey,
		TokenKey:        r.tokenKey.PublicKey,
		ProviderDataKey: r.providerDataKey,
		Mediators:       slices.Clone(r.mediators),
	}, nil
}

func (r *Relay) addMediatorPublicKeys(_ context.Context, caller string, req api.AddMediatorPublicKeysRequest) (string, error) {
	if caller != r.rootKey {
		return "", unauthorized("only the root key may add mediators")
	}
	if err := crypto.Verify([]string{r.rootKey}, &req.SignedKeyData); err != nil {
		return "", badRequest("mediator key data is not signed by the root key")
	}
	var kd model.MediatorKeyData
	if err := req.SignedKeyData.Decode(&kd); err != nil || kd.Signing == "" || kd.Encryption == "" {
		return "", badRequest("invalid mediator key data")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isMediator(kd.Signing) {
		r.mediators = append(r.mediators, req.SignedKeyData)
	}
	return api.OK, nil
}

func (r *Relay) getToken(_ context.Context, _ string, req api.GetTokenRequest) (crypto.SignedData, error) {
	if req.Hash == "" || req.PublicKey == "" || req.Encryption == "" {
		return crypto.SignedData{}, badRequest("hash, publicKey and encryption are required")
	}
	token := model.UserToken{
		Version:    model.TokenVersion,
		PublicKey:  req.PublicKey,
		Encryption: req.Encryption,
		ZipCode:    req.ZipCode,
		DataHash:   req.Hash,
		IssuedAt:   r.suite.Now(),
	}
	signed, err := r.suite.SignJSON(token, r.tokenKey)
	if err != nil {
		return crypto.SignedData{}, err
	}
	return *signed, nil
}

func (r *Relay) storeProviderData(_ context.Context, caller string, req api.StoreProviderDataRequest) (string, error) {
	id, err := crypto.PublicKeyID(caller)
	if err != nil {
		return "", badRequest("invalid signing key")
	}
	data := req.EncryptedData

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.providers[id]
	if !ok {
		p = &providerEntry{}
		r.providers[id] = p
	}
	p.unverified = &data
	p.pending = true
	return api.OK, nil
}

func (r *Relay) checkProviderData(_ context.Context, caller string, _ api.Empty) (api.CheckProviderDataResponse, error) {
	id, err := crypto.PublicKeyID(caller)
	if err != nil {
		return api.CheckProviderDataResponse{}, badRequest("invalid signing key")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	if !ok {
		return api.CheckProviderDataResponse{}, notFound("no provider data stored")
	}
	return api.CheckProviderDataResponse{
		UnverifiedData: p.unverified,
		VerifiedData:   p.confirmed,
	}, nil
}

func (r *Relay) getPendingProviderData(_ context.Context, caller string, req api.ListProvidersRequest) ([]model.ProviderRecord, error) {
	return r.listProviders(caller, req.Limit, func(p *providerEntry) (*crypto.ECDHData, bool) {
		return p.unverified, p.pending && p.unverified != nil
	})
}

func (r *Relay) getVerifiedProviderData(_ context.Context, caller string, req api.ListProvidersRequest) ([]model.ProviderRecord, error) {
	return r.listProviders(caller, req.Limit, func(p *providerEntry) (*crypto.ECDHData, bool) {
		return p.verifiedData, p.verified() && p.verifiedData != nil
	})
}

func (r *Relay) listProviders(caller string, limit int, pick func(*providerEntry) (*crypto.ECDHData, bool)) ([]model.ProviderRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.isMediator(caller) {
		return nil, unauthorized("not a mediator")
	}

	records := []model.ProviderRecord{}
	for id, p := range r.providers {
		data, ok := pick(p)
		if !ok {
			continue
		}
		records = append(records, model.ProviderRecord{ID: id, EncryptedData: *data, Verified: p.verified()})
	}
	slices.SortFunc(records, func(a, b model.ProviderRecord) int {
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (r *Relay) confirmProvider(_ context.Context, caller string, req model.Confirmation) (string, error) {
	for _, sd := range []*crypto.SignedData{&req.ConfirmedProviderData, &req.PublicProviderData, &req.SignedKeyData} {
		if err := crypto.Verify([]string{caller}, sd); err != nil {
			return "", badRequest("confirmation is not signed by the caller")
		}
	}
	var kd model.KeyData
	if err := req.SignedKeyData.Decode(&kd); err != nil || kd.Signing == "" {
		return "", badRequest("invalid key data")
	}
	id, err := crypto.PublicKeyID(kd.Signing)
	if err != nil {
		return "", badRequest("invalid provider signing key")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isMediator(caller) {
		return "", unauthorized("not a mediator")
	}
	p, ok := r.providers[id]
	if !ok {
		return "", notFound("provider %s", id)
	}

	confirmed := req.ConfirmedProviderData
	p.confirmed = &confirmed
	p.public = req.PublicProviderData
	p.keyData = req.SignedKeyData
	p.queue = kd.QueueData
	p.verifiedData = p.unverified
	p.pending = false
	return api.OK, nil
}

// verifiedProvider returns the caller's provider entry if it is verified.
// Callers hold mu.
func (r *Relay) verifiedProvider(caller string) (string, *providerEntry, error) {
	id, err := crypto.PublicKeyID(caller)
	if err != nil {
		return "", nil, badRequest("invalid signing key")
	}
	p, ok := r.providers[id]
	if !ok || !p.verified() {
		return "", nil, unauthorized("provider is not verified")
	}
	return id, p, nil
}

func (r *Relay) publishAppointments(_ context.Context, caller string, req api.PublishAppointmentsRequest) (string, error) {
	published := make([]*appointmentEntry, 0, len(req.Appointments))
	for i := range req.Appointments {
		sd := req.Appointments[i]
		if sd.PublicKey != caller {
			return "", badRequest("appointment %d is not signed by the caller", i)
		}
		if err := crypto.Verify([]string{caller}, &sd); err != nil {
			return "", badRequest("appointment %d has an invalid signature", i)
		}
		var a model.Appointment
		if err := sd.Decode(&a); err != nil || a.ID == "" {
			return "", badRequest("appointment %d is malformed", i)
		}
		published = append(published, &appointmentEntry{signed: sd, appointment: a})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, _, err := r.verifiedProvider(caller)
	if err != nil {
		return "", err
	}
	own, ok := r.appointments[id]
	if !ok {
		own = make(map[string]*appointmentEntry)
		r.appointments[id] = own
	}

	for _, entry := range published {
		entry.bookings = make(map[string]model.EncryptedBooking)
		if prev, ok := own[entry.appointment.ID]; ok {
			slots := entry.appointment.SlotIDs()
			for slotID, b := range prev.bookings {
				if slices.Contains(slots, slotID) {
					entry.bookings[slotID] = b
				} else {
					delete(r.tokens, b.PublicKey)
				}
			}
		}
		own[entry.appointment.ID] = entry
	}
	return api.OK, nil
}

func (r *Relay) getProviderAppointments(_ context.Context, caller string, _ api.Empty) ([]model.AppointmentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, _, err := r.verifiedProvider(caller)
	if err != nil {
		return nil, err
	}

	records := []model.AppointmentRecord{}
	for _, entry := range sortedEntries(r.appointments[id]) {
		record := entry.record()
		for _, slotID := range record.BookedSlots {
			record.Bookings = append(record.Bookings, entry.bookings[slotID])
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Relay) getAppointmentsByZipCode(_ context.Context, _ string, req api.GetAppointmentsByZipCodeRequest) ([]model.ProviderAppointments, error) {
	if req.ZipCode == "" {
		return nil, badRequest("zipCode is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	results := []model.ProviderAppointments{}
	for _, id := range sortedKeys(r.providers) {
		p := r.providers[id]
		if !p.verified() || !zipMatches(p.queue.ZipCode, req.ZipCode, req.Radius) {
			continue
		}
		var records []model.AppointmentRecord
		for _, entry := range sortedEntries(r.appointments[id]) {
			start := entry.appointment.StartAt
			if !req.From.IsZero() && start.Before(req.From) {
				continue
			}
			if !req.To.IsZero() && !start.Before(req.To) {
				continue
			}
			records = append(records, entry.record())
		}
		if len(records) == 0 {
			continue
		}
		results = append(results, model.ProviderAppointments{
			Provider:     p.public,
			KeyData:      p.keyData,
			Appointments: records,
		})
	}
	return results, nil
}

func (r *Relay) getAppointment(_ context.Context, _ string, req api.GetAppointmentRequest) (model.ProviderAppointments, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[req.ProviderID]
	if !ok || !p.verified() {
		return model.ProviderAppointments{}, notFound("provider %s", req.ProviderID)
	}
	entry, ok := r.appointments[req.ProviderID][req.ID]
	if !ok {
		return model.ProviderAppointments{}, notFound("appointment %s", req.ID)
	}
	return model.ProviderAppointments{
		Provider:     p.public,
		KeyData:      p.keyData,
		Appointments: []model.AppointmentRecord{entry.record()},
	}, nil
}

// checkToken verifies a queue token and that the caller holds it.
func (r *Relay) checkToken(caller string, signed *crypto.SignedData) error {
	if err := crypto.Verify([]string{r.tokenKey.PublicKey}, signed); err != nil {
		return unauthorized("invalid queue token")
	}
	var token model.UserToken
	if err := signed.Decode(&token); err != nil {
		return unauthorized("invalid queue token")
	}
	if token.PublicKey != caller {
		return unauthorized("queue token belongs to another key")
	}
	return nil
}

func (r *Relay) bookAppointment(_ context.Context, caller string, req api.BookAppointmentRequest) (api.BookAppointmentResponse, error) {
	if err := r.checkToken(caller, &req.SignedTokenData); err != nil {
		return api.BookAppointmentResponse{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, used := r.tokens[caller]; used {
		return api.BookAppointmentResponse{}, unauthorized("queue token already used")
	}
	entry, ok := r.appointments[req.ProviderID][req.ID]
	if !ok {
		return api.BookAppointmentResponse{}, notFound("appointment %s", req.ID)
	}

	for _, slotID := range entry.appointment.SlotIDs() {
		if _, taken := entry.bookings[slotID]; taken {
			continue
		}
		entry.bookings[slotID] = model.EncryptedBooking{
			ID:            slotID,
			PublicKey:     caller,
			Token:         uuid.NewString(),
			EncryptedData: req.EncryptedData,
		}
		r.tokens[caller] = bookingRef{providerID: req.ProviderID, appointmentID: req.ID, slotID: slotID}
		return api.BookAppointmentResponse{SlotID: slotID}, nil
	}
	return api.BookAppointmentResponse{}, conflict("appointment %s is fully booked", req.ID)
}

func (r *Relay) cancelBooking(_ context.Context, caller string, req api.CancelBookingRequest) (string, error) {
	if err := r.checkToken(caller, &req.SignedTokenData); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.tokens[caller]
	if !ok || ref.providerID != req.ProviderID || ref.appointmentID != req.ID {
		return "", notFound("no booking for appointment %s", req.ID)
	}
	if entry, ok := r.appointments[ref.providerID][ref.appointmentID]; ok {
		delete(entry.bookings, ref.slotID)
	}
	delete(r.tokens, caller)
	return api.OK, nil
}

func (r *Relay) storeSettings(_ context.Context, _ string, req model.Settings) (string, error) {
	if req.ID == "" {
		return "", badRequest("id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings[req.ID] = req.Data
	return api.OK, nil
}

func (r *Relay) getSettings(_ context.Context, _ string, req api.SettingsIDRequest) (crypto.AESData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.settings[req.ID]
	if !ok {
		return crypto.AESData{}, notFound("settings %s", req.ID)
	}
	return data, nil
}

func (r *Relay) deleteSettings(_ context.Context, _ string, req api.SettingsIDRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.settings, req.ID)
	return api.OK, nil
}

func (r *Relay) resetDB(_ context.Context, caller string, _ api.Empty) (string, error) {
	if caller != r.rootKey {
		return "", unauthorized("only the root key may reset the relay")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.reset()
	return api.OK, nil
}

// record is the anonymous view of e: the signed appointment and which
// slots are taken.
func (e *appointmentEntry) record() model.AppointmentRecord {
	record := model.AppointmentRecord{SignedAppointment: e.signed}
	for _, slotID := range e.appointment.SlotIDs() {
		if _, ok := e.bookings[slotID]; ok {
			record.BookedSlots = append(record.BookedSlots, slotID)
		}
	}
	return record
}

func sortedEntries(m map[string]*appointmentEntry) []*appointmentEntry {
	entries := make([]*appointmentEntry, 0, len(m))
	for _, e := range m {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b *appointmentEntry) int {
		if c := a.appointment.StartAt.Compare(b.appointment.StartAt); c != 0 {
			return c
		}
		return cmp.Compare(a.appointment.ID, b.appointment.ID)
	})
	return entries
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// zipMatches compares zip codes. With a radius, numeric zip codes within
// radius of each other match; otherwise only equal codes do.
func zipMatches(zip, target string, radius int) bool {
	if zip == target {
		return true
	}
	if radius <= 0 || len(zip) != len(target) {
		return false
	}
	a, err := strconv.Atoi(zip)
	if err != nil {
		return false
	}
	b, err := strconv.Atoi(target)
	if err != nil {
		return false
	}
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= radius
}
