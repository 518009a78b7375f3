package kiebitz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/model"
	"github.com/kiebitz/client-go/internal/store"
)

// BackupVersion is the current backup format version.
const BackupVersion = 1

// ErrInvalidBackup is returned when a decrypted backup fails validation.
var ErrInvalidBackup = errors.New("invalid backup")

// ProviderBackup is the content of a provider's local backup file. The
// sync key seeds the provider's cloud backup.
type ProviderBackup struct {
	Version   int                 `json:"version"`
	CreatedAt time.Time           `json:"createdAt"`
	Keys      ProviderKeyPairs    `json:"keys"`
	SyncKey   string              `json:"syncKey"`
	Data      *model.ProviderData `json:"data,omitempty"`
}

// Validate checks the format version, the keys and the sync key.
func (b *ProviderBackup) Validate() error {
	if b.Version != BackupVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, b.Version)
	}
	if err := b.Keys.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if key, err := crypto.FromBase64(b.SyncKey); err != nil || len(key) != syncKeySize {
		return fmt.Errorf("%w: invalid sync key", ErrInvalidBackup)
	}
	return nil
}

// UserBackup is the content of a user's cloud backup.
type UserBackup struct {
	Version   int                   `json:"version"`
	CreatedAt time.Time             `json:"createdAt"`
	Token     *model.UserQueueToken `json:"token,omitempty"`
	Contact   *model.ContactData    `json:"contact,omitempty"`
	Booking   *model.UserBooking    `json:"booking,omitempty"`
}

// Validate checks the format version and the token keys.
func (b *UserBackup) Validate() error {
	if b.Version != BackupVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, b.Version)
	}
	if b.Token != nil {
		if err := b.Token.KeyPairs.Validate(); err != nil {
			return fmt.Errorf("%w: token %v", ErrInvalidBackup, err)
		}
	}
	return nil
}

// providerCloudState is what a provider keeps in its cloud backup.
type providerCloudState struct {
	Version   int                 `json:"version"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Data      *model.ProviderData `json:"data,omitempty"`
}

const syncKeySize = 32

// cloudAddress derives the settings id and the encryption key of a cloud
// backup from seed. The relay only ever sees the id.
func cloudAddress(seed []byte) (id string, key []byte, err error) {
	secrets, err := crypto.DeriveSecrets(seed, 32, 2)
	if err != nil {
		return "", nil, apierrors.Crypto("derive", err)
	}
	return secrets[0], []byte(secrets[1]), nil
}

func decodeSecret(secret string) ([]byte, error) {
	b, err := crypto.FromBase32(secret)
	if err != nil {
		return nil, err
	}
	if len(b) != crypto.SecretSize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", crypto.ErrInvalidSecret, crypto.SecretSize, len(b))
	}
	return b, nil
}

func sealJSON(suite *crypto.Suite, v any, key []byte) (*crypto.AESData, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal backup: %w", err)
	}
	env, err := suite.AESEncrypt(plaintext, key)
	if err != nil {
		return nil, apierrors.Crypto("encrypt", err)
	}
	return env, nil
}

func openJSON(env *crypto.AESData, key []byte, dst any) error {
	plaintext, err := crypto.AESDecrypt(env, key)
	if err != nil {
		return apierrors.Crypto("decrypt", err)
	}
	if err := json.Unmarshal(plaintext, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	return nil
}

// syncKey returns the provider's cloud seed, creating one on first use.
func (p *Provider) syncKey(ctx context.Context) ([]byte, error) {
	key, found, err := p.storedSyncKey(ctx)
	if err != nil || found {
		return key, err
	}
	key, err = p.suite().RandomBytes(syncKeySize)
	if err != nil {
		return nil, apierrors.Crypto("keygen", err)
	}
	if err := store.SetJSON(ctx, p.store(), p.key("sync"), crypto.ToBase64(key)); err != nil {
		return nil, err
	}
	return key, nil
}

// storedSyncKey reads the cloud seed without creating one. Without a seed
// there can be no cloud backup, so reads and deletes report a NotFoundError.
func (p *Provider) storedSyncKey(ctx context.Context) ([]byte, bool, error) {
	var encoded string
	found, err := store.GetJSON(ctx, p.store(), p.key("sync"), &encoded)
	if err != nil || !found {
		return nil, found, err
	}
	key, err := crypto.FromBase64(encoded)
	if err != nil {
		return nil, false, err
	}
	return key, true, nil
}

// cloudSyncKey is storedSyncKey for paths that need an existing backup.
func (p *Provider) cloudSyncKey(ctx context.Context) ([]byte, error) {
	key, found, err := p.storedSyncKey(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &NotFoundError{Resource: "backup"}
	}
	return key, nil
}

// ExportBackup returns the provider's keys, sync key and data encrypted
// with secret. Keep it offline; anyone holding it and the secret is the
// provider.
func (p *Provider) ExportBackup(ctx context.Context, secret string) (*crypto.AESData, error) {
	keys, err := p.currentKeys()
	if err != nil {
		return nil, err
	}
	s, err := decodeSecret(secret)
	if err != nil {
		return nil, err
	}
	sync, err := p.syncKey(ctx)
	if err != nil {
		return nil, err
	}
	data, err := p.Data(ctx)
	if err != nil {
		return nil, err
	}

	return sealJSON(p.suite(), ProviderBackup{
		Version:   BackupVersion,
		CreatedAt: p.suite().Now(),
		Keys:      keys,
		SyncKey:   crypto.ToBase64(sync),
		Data:      data,
	}, s)
}

// RestoreProvider creates a provider client from a backup made with
// ExportBackup and persists the restored state.
func RestoreProvider(ctx context.Context, backup *crypto.AESData, secret string, opts ...Option) (*Provider, error) {
	s, err := decodeSecret(secret)
	if err != nil {
		return nil, err
	}
	var b ProviderBackup
	if err := openJSON(backup, s, &b); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	p, err := NewProvider(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.saveKeys(ctx, b.Keys); err != nil {
		return nil, err
	}
	if err := store.SetJSON(ctx, p.store(), p.key("sync"), b.SyncKey); err != nil {
		return nil, err
	}
	if b.Data != nil {
		if err := store.SetJSON(ctx, p.store(), p.key("data"), b.Data); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// SyncBackup uploads the provider data, encrypted, to the backup relay.
func (p *Provider) SyncBackup(ctx context.Context) error {
	if _, err := p.currentKeys(); err != nil {
		return err
	}
	sync, err := p.syncKey(ctx)
	if err != nil {
		return err
	}
	id, key, err := cloudAddress(sync)
	if err != nil {
		return err
	}
	data, err := p.Data(ctx)
	if err != nil {
		return err
	}

	env, err := sealJSON(p.suite(), providerCloudState{Version: BackupVersion, UpdatedAt: p.suite().Now(), Data: data}, key)
	if err != nil {
		return err
	}
	res, err := invokeStorage(ctx, p.actor, api.StoreSettings, model.Settings{ID: id, Data: *env})
	if err != nil {
		return err
	}
	if res != api.OK {
		return apierrors.Unexpectedf("storeSettings returned %q", res)
	}
	return nil
}

// RestoreCloudBackup downloads the provider data from the backup relay and
// stores it locally. It returns a NotFoundError if there is no backup or no
// sync key to find it with.
func (p *Provider) RestoreCloudBackup(ctx context.Context) (*model.ProviderData, error) {
	sync, err := p.cloudSyncKey(ctx)
	if err != nil {
		return nil, err
	}
	id, key, err := cloudAddress(sync)
	if err != nil {
		return nil, err
	}
	env, err := invokeStorage(ctx, p.actor, api.GetSettings, api.SettingsIDRequest{ID: id})
	if errors.Is(err, apierrors.ErrNotFound) {
		return nil, &NotFoundError{Resource: "backup", ID: id}
	}
	if err != nil {
		return nil, err
	}

	var state providerCloudState
	if err := openJSON(&env, key, &state); err != nil {
		return nil, err
	}
	if state.Version != BackupVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, state.Version)
	}
	if state.Data != nil {
		if err := store.SetJSON(ctx, p.store(), p.key("data"), state.Data); err != nil {
			return nil, err
		}
	}
	return state.Data, nil
}

// DeleteCloudBackup removes the provider's cloud backup.
func (p *Provider) DeleteCloudBackup(ctx context.Context) error {
	sync, err := p.cloudSyncKey(ctx)
	if err != nil {
		return err
	}
	id, _, err := cloudAddress(sync)
	if err != nil {
		return err
	}
	_, err = invokeStorage(ctx, p.actor, api.DeleteSettings, api.SettingsIDRequest{ID: id})
	return err
}

// Backup uploads the user's token, contact data and booking to the backup
// relay, encrypted under a key derived from secret.
func (u *User) Backup(ctx context.Context, secret string) error {
	s, err := decodeSecret(secret)
	if err != nil {
		return err
	}
	id, key, err := cloudAddress(s)
	if err != nil {
		return err
	}

	b := UserBackup{Version: BackupVersion, CreatedAt: u.suite().Now()}
	if b.Token, err = u.Token(ctx); err != nil {
		return err
	}
	if b.Booking, err = u.Booking(ctx); err != nil {
		return err
	}
	var contact model.ContactData
	found, err := store.GetJSON(ctx, u.store(), u.key("contact"), &contact)
	if err != nil {
		return err
	}
	if found {
		b.Contact = &contact
	}

	env, err := sealJSON(u.suite(), b, key)
	if err != nil {
		return err
	}
	res, err := invokeStorage(ctx, u.actor, api.StoreSettings, model.Settings{ID: id, Data: *env})
	if err != nil {
		return err
	}
	if res != api.OK {
		return apierrors.Unexpectedf("storeSettings returned %q", res)
	}
	return nil
}

// RestoreUser creates a user client from the cloud backup stored under
// secret and persists the restored state.
func RestoreUser(ctx context.Context, secret string, opts ...Option) (*User, error) {
	s, err := decodeSecret(secret)
	if err != nil {
		return nil, err
	}
	id, key, err := cloudAddress(s)
	if err != nil {
		return nil, err
	}

	u, err := NewUser(ctx, opts...)
	if err != nil {
		return nil, err
	}
	env, err := invokeStorage(ctx, u.actor, api.GetSettings, api.SettingsIDRequest{ID: id})
	if errors.Is(err, apierrors.ErrNotFound) {
		return nil, &NotFoundError{Resource: "backup", ID: id}
	}
	if err != nil {
		return nil, err
	}

	var b UserBackup
	if err := openJSON(&env, key, &b); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	save := func(name string, v any) error {
		return store.SetJSON(ctx, u.store(), u.key(name), v)
	}
	if b.Token != nil {
		if err := save("token", b.Token); err != nil {
			return nil, err
		}
	}
	if b.Contact != nil {
		if err := save("contact", b.Contact); err != nil {
			return nil, err
		}
	}
	if b.Booking != nil {
		if err := save("booking", b.Booking); err != nil {
			return nil, err
		}
	}
	if b.Token != nil {
		u.setKeys(b.Token.KeyPairs)
	}
	return u, nil
}

// DeleteBackup removes the user's cloud backup stored under secret.
func (u *User) DeleteBackup(ctx context.Context, secret string) error {
	s, err := decodeSecret(secret)
	if err != nil {
		return err
	}
	id, _, err := cloudAddress(s)
	if err != nil {
		return err
	}
	_, err = invokeStorage(ctx, u.actor, api.DeleteSettings, api.SettingsIDRequest{ID: id})
	return err
}
