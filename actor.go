package kiebitz

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/store"
)

// KeySet is a role's key material. Every role signs its relay calls with
// exactly one key.
type KeySet interface {
	SigningKey() *crypto.KeyPair
	Validate() error
}

// actor is the state shared by all roles: configuration, collaborators and
// the role's keys.
type actor[K KeySet] struct {
	role string
	cfg  *clientConfig
	log  *zap.Logger

	mu      sync.RWMutex
	keys    K
	hasKeys bool

	tofu sync.Once
}

func newActor[K KeySet](role string, opts []Option) (*actor[K], error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &actor[K]{
		role: role,
		cfg:  cfg,
		log:  cfg.logger.With(zap.String("role", role)),
	}, nil
}

// key returns the store key for name in the role's namespace.
func (a *actor[K]) key(name string) string {
	return a.role + "::" + name
}

func (a *actor[K]) store() store.Store {
	return a.cfg.store
}

func (a *actor[K]) suite() *crypto.Suite {
	return a.cfg.suite
}

// currentKeys returns the role's keys, or an AuthError if it has none.
func (a *actor[K]) currentKeys() (K, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.hasKeys || a.keys.SigningKey() == nil {
		var zero K
		return zero, &AuthError{Role: a.role, Missing: "keys"}
	}
	return a.keys, nil
}

func (a *actor[K]) setKeys(keys K) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = keys
	a.hasKeys = true
}

// saveKeys sets keys and persists them.
func (a *actor[K]) saveKeys(ctx context.Context, keys K) error {
	if err := store.SetJSON(ctx, a.store(), a.key("keys"), keys); err != nil {
		return err
	}
	a.setKeys(keys)
	return nil
}

// loadKeys restores persisted keys. It reports false when there are none.
func (a *actor[K]) loadKeys(ctx context.Context) (bool, error) {
	var keys K
	found, err := store.GetJSON(ctx, a.store(), a.key("keys"), &keys)
	if err != nil || !found {
		return false, err
	}
	if err := a.restoreKeys(keys); err != nil {
		return false, err
	}
	return true, nil
}

// restoreKeys sets keys read back from storage after checking them.
func (a *actor[K]) restoreKeys(keys K) error {
	if err := keys.Validate(); err != nil {
		return fmt.Errorf("%s: stored keys: %w", a.role, err)
	}
	a.setKeys(keys)
	return nil
}

// Forget deletes all locally stored state of the role, keys included.
func (a *actor[K]) Forget(ctx context.Context) error {
	if err := a.store().DeleteAll(ctx, a.role+"::"); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	var zero K
	a.keys = zero
	a.hasKeys = false
	return nil
}

// invoke calls m on the relay, signing with the role's key when m is a
// signed method.
func invoke[K KeySet, Req, Resp any](ctx context.Context, a *actor[K], m api.Method[Req, Resp], req Req) (Resp, error) {
	var signer *crypto.KeyPair
	if m.Signed {
		keys, err := a.currentKeys()
		if err != nil {
			var zero Resp
			return zero, err
		}
		signer = keys.SigningKey()
	}
	return m.Invoke(ctx, a.cfg.transport, req, signer)
}

// invokeStorage calls an unsigned storage method on the backup relay.
func invokeStorage[K KeySet, Req, Resp any](ctx context.Context, a *actor[K], m api.Method[Req, Resp], req Req) (Resp, error) {
	return m.Invoke(ctx, a.cfg.storageTransport, req, nil)
}
