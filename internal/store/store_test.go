package store

import (
	"context"
	"errors"
	"testing"
)

// testStore runs the Store contract against s.
func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("set get overwrite", func(t *testing.T) {
		if err := s.Set(ctx, "a", []byte("1")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := s.Set(ctx, "a", []byte("2")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, err := s.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if string(got) != "2" {
			t.Errorf("Get() = %q, want %q", got, "2")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Set(ctx, "b", []byte("x")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := s.Delete(ctx, "b"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, "b"); err != nil {
			t.Errorf("Delete(missing) error = %v", err)
		}
	})

	t.Run("delete all by prefix", func(t *testing.T) {
		keys := []string{"provider::keys", "provider::data", "provider_x", "user::token"}
		for _, k := range keys {
			if err := s.Set(ctx, k, []byte(k)); err != nil {
				t.Fatalf("Set(%s) error = %v", k, err)
			}
		}

		if err := s.DeleteAll(ctx, "provider::"); err != nil {
			t.Fatalf("DeleteAll() error = %v", err)
		}

		for _, k := range []string{"provider::keys", "provider::data"} {
			if _, err := s.Get(ctx, k); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(%s) error = %v, want ErrNotFound", k, err)
			}
		}
		for _, k := range []string{"provider_x", "user::token"} {
			if _, err := s.Get(ctx, k); err != nil {
				t.Errorf("Get(%s) error = %v, want kept", k, err)
			}
		}
	})

	t.Run("json helpers", func(t *testing.T) {
		type record struct {
			Name string `json:"name"`
		}

		var got record
		found, err := GetJSON(ctx, s, "json::missing", &got)
		if err != nil || found {
			t.Errorf("GetJSON(missing) = %v, %v", found, err)
		}

		if err := SetJSON(ctx, s, "json::r", record{Name: "n"}); err != nil {
			t.Fatalf("SetJSON() error = %v", err)
		}
		found, err = GetJSON(ctx, s, "json::r", &got)
		if err != nil || !found {
			t.Fatalf("GetJSON() = %v, %v", found, err)
		}
		if got.Name != "n" {
			t.Errorf("GetJSON() = %+v", got)
		}

		if err := s.Set(ctx, "json::bad", []byte("{")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if _, err := GetJSON(ctx, s, "json::bad", &got); err == nil {
			t.Error("GetJSON(invalid) expected error")
		}
	})
}

func TestMemory(t *testing.T) {
	testStore(t, NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	value := []byte("abc")
	_ = m.Set(ctx, "k", value)
	value[0] = 'x'

	got, _ := m.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("Get() = %q, store aliased caller's slice", got)
	}
	got[0] = 'y'
	again, _ := m.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("Get() = %q, store returned internal slice", again)
	}
}

func TestSQL_SQLite(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	testStore(t, s)
}

func TestSQL_LikeWildcardsInPrefix(t *testing.T) {
	ctx := context.Background()
	s, err := Open("sqlite://:memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	_ = s.Set(ctx, "a_b", []byte("1"))
	_ = s.Set(ctx, "axb", []byte("2"))

	if err := s.DeleteAll(ctx, "a_"); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if _, err := s.Get(ctx, "axb"); err != nil {
		t.Errorf("Get(axb) error = %v, underscore matched as wildcard", err)
	}
	if _, err := s.Get(ctx, "a_b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(a_b) error = %v, want ErrNotFound", err)
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"a_b", "a!_b"},
		{"50%", "50!%"},
		{"x!y", "x!!y"},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
