package kiebitz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kiebitz/client-go/internal/relay"
)

// testEnv is a relay on an httptest server with an admin that holds its
// system keys.
type testEnv struct {
	url   string
	relay *relay.Relay
	keys  *AdminKeyPairs
	admin *Admin
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

// newTestEnvWith is newTestEnv with the relay handler wrapped by wrap.
func newTestEnvWith(t *testing.T, wrap func(http.Handler) http.Handler) *testEnv {
	t.Helper()

	keys, err := GenerateAdminKeys(nil)
	require.NoError(t, err)

	r, err := relay.New(relay.Config{
		RootKey:         keys.Root.PublicKey,
		TokenKey:        keys.Token,
		ProviderDataKey: keys.ProviderData.PublicKey,
	})
	require.NoError(t, err)

	var h http.Handler = r.Handler()
	if wrap != nil {
		h = wrap(h)
	}
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	env := &testEnv{url: server.URL, relay: r, keys: keys}
	env.admin, err = NewAdmin(keys, env.opts()...)
	require.NoError(t, err)
	return env
}

// opts returns client options pointing at the test relay.
func (e *testEnv) opts(extra ...Option) []Option {
	return append([]Option{
		WithBaseURL(e.url),
		WithRetries(-1),
		WithTimeout(5 * time.Second),
		WithRootKey(e.keys.Root.PublicKey),
	}, extra...)
}

func (e *testEnv) mediator(t *testing.T) *Mediator {
	t.Helper()
	keys, err := e.admin.GenerateMediatorKeys(context.Background())
	require.NoError(t, err)
	m, err := NewMediator(keys, e.opts()...)
	require.NoError(t, err)
	return m
}

func testProviderData(zip string) ProviderData {
	return ProviderData{
		Name:        "Praxis am Park",
		Street:      "Parkstraße 1",
		City:        "Berlin",
		ZipCode:     zip,
		Description: "Walk-in on Mondays",
		Email:       "praxis@example.com",
		Accessible:  true,
	}
}

// submittedProvider returns a provider with keys that has stored data.
func (e *testEnv) submittedProvider(t *testing.T, zip string, extra ...Option) *Provider {
	t.Helper()
	ctx := context.Background()

	p, err := NewProvider(ctx, e.opts(extra...)...)
	require.NoError(t, err)
	_, err = p.GenerateKeys(ctx)
	require.NoError(t, err)
	require.NoError(t, p.StoreData(ctx, testProviderData(zip)))
	return p
}

// confirm has m confirm the pending submission of p.
func confirm(t *testing.T, m *Mediator, p *Provider) {
	t.Helper()
	ctx := context.Background()

	pending, err := m.PendingProviders(ctx, 0)
	require.NoError(t, err)
	for i := range pending {
		if pending[i].ID == p.ID() {
			require.NoError(t, m.ConfirmProvider(ctx, &pending[i]))
			return
		}
	}
	t.Fatalf("provider %s is not pending", p.ID())
}

func (e *testEnv) verifiedProvider(t *testing.T, zip string, extra ...Option) *Provider {
	t.Helper()
	p := e.submittedProvider(t, zip, extra...)
	confirm(t, e.mediator(t), p)
	return p
}

// publish creates and publishes one appointment with slots slots tomorrow.
func publish(t *testing.T, p *Provider, slots int) *Appointment {
	t.Helper()
	start := time.Now().Add(24 * time.Hour).Truncate(time.Minute)
	a, err := p.NewAppointment(start, 30*time.Minute, slots, map[string]string{"vaccine": "mRNA"})
	require.NoError(t, err)
	require.NoError(t, p.PublishAppointments(context.Background(), *a))
	return a
}

func (e *testEnv) userWithToken(t *testing.T, zip string, extra ...Option) *User {
	t.Helper()
	ctx := context.Background()
	u, err := NewUser(ctx, e.opts(extra...)...)
	require.NoError(t, err)
	_, err = u.GetToken(ctx, ContactData{Email: "user@example.com"}, zip)
	require.NoError(t, err)
	return u
}
