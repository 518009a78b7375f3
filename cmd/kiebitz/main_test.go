package main

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/relay"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("KIEBITZ_APPOINTMENTS_URL", "")
	appointmentsURL, storageURL, rootKey, storeDSN = "", "", "", ""

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(out, "kiebitz version dev") {
		t.Errorf("output = %q", out)
	}
}

func TestSecretNew(t *testing.T) {
	out, err := execute(t, "secret", "new")
	if err != nil {
		t.Fatalf("secret new error = %v", err)
	}
	raw, err := crypto.FromBase32(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("printed secret does not decode: %v", err)
	}
	if len(raw) != crypto.SecretSize {
		t.Errorf("secret has %d bytes, want %d", len(raw), crypto.SecretSize)
	}
}

func TestSecretDerive(t *testing.T) {
	secret, err := crypto.DefaultSuite().NewSecret()
	if err != nil {
		t.Fatalf("NewSecret() error = %v", err)
	}

	first, err := execute(t, "secret", "derive", crypto.FormatSecret(secret))
	if err != nil {
		t.Fatalf("secret derive error = %v", err)
	}
	second, err := execute(t, "secret", "derive", secret)
	if err != nil {
		t.Fatalf("secret derive error = %v", err)
	}
	if first != second {
		t.Error("derivation is not deterministic")
	}
	if lines := strings.Split(strings.TrimSpace(first), "\n"); len(lines) != 2 {
		t.Errorf("got %d values, want 2", len(lines))
	}

	if _, err := execute(t, "secret", "derive", "not-a-secret!"); err == nil {
		t.Error("expected error for malformed secret")
	}
}

func TestKeysAdmin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.json")
	out, err := execute(t, "keys", "admin", "--out", path)
	if err != nil {
		t.Fatalf("keys admin error = %v", err)
	}

	keys, err := loadAdminKeys(path)
	if err != nil {
		t.Fatalf("loadAdminKeys() error = %v", err)
	}
	if !strings.Contains(out, keys.Root.PublicKey) {
		t.Errorf("output does not show the root key: %q", out)
	}
}

func TestAdminReset_RequiresConfirmation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.json")
	if _, err := execute(t, "keys", "admin", "--out", path); err != nil {
		t.Fatalf("keys admin error = %v", err)
	}
	if _, err := execute(t, "admin", "reset", "--admin", path, "--url", "http://127.0.0.1:1"); err == nil {
		t.Error("expected error without --yes")
	}
}

func TestMediatorWorkflow(t *testing.T) {
	dir := t.TempDir()
	adminPath := filepath.Join(dir, "admin.json")
	mediatorPath := filepath.Join(dir, "mediator.json")

	if _, err := execute(t, "keys", "admin", "--out", adminPath); err != nil {
		t.Fatalf("keys admin error = %v", err)
	}
	keys, err := loadAdminKeys(adminPath)
	if err != nil {
		t.Fatalf("loadAdminKeys() error = %v", err)
	}

	r, err := relay.New(relay.Config{
		RootKey:         keys.Root.PublicKey,
		TokenKey:        keys.Token,
		ProviderDataKey: keys.ProviderData.PublicKey,
	})
	if err != nil {
		t.Fatalf("relay.New() error = %v", err)
	}
	server := httptest.NewServer(r.Handler())
	defer server.Close()

	if _, err := execute(t, "keys", "mediator", "--admin", adminPath, "--url", server.URL, "--out", mediatorPath); err != nil {
		t.Fatalf("keys mediator error = %v", err)
	}
	if _, err := loadMediatorKeys(mediatorPath); err != nil {
		t.Fatalf("loadMediatorKeys() error = %v", err)
	}

	out, err := execute(t, "mediator", "providers", "--keys", mediatorPath, "--url", server.URL)
	if err != nil {
		t.Fatalf("mediator providers error = %v", err)
	}
	if !strings.HasPrefix(out, "ID") {
		t.Errorf("output = %q, want table header", out)
	}

	out, err = execute(t, "mediator", "verify", "--all", "--keys", mediatorPath, "--url", server.URL, "--root-key", keys.Root.PublicKey)
	if err != nil {
		t.Fatalf("mediator verify error = %v", err)
	}
	if !strings.Contains(out, "Verified 0 provider(s)") {
		t.Errorf("output = %q", out)
	}
}

func TestClientOptions_RequiresURL(t *testing.T) {
	appointmentsURL = ""
	if _, _, err := clientOptions(); err == nil {
		t.Error("expected error without --url")
	}
}
