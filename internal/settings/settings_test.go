package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	redis "github.com/redis/go-redis/v9"
)

func TestDefaults(t *testing.T) {
	s := Defaults()
	if s.Language != "en-US" {
		t.Errorf("expected en-US, got %s", s.Language)
	}
	if s.AutoInsert {
		t.Error("expected AutoInsert off by default")
	}
	if !s.ConfirmBeforeAdd {
		t.Error("expected ConfirmBeforeAdd on by default")
	}
	if s.ShouldConfirm() {
		t.Error("expected no confirmation while AutoInsert is off")
	}
}

func TestNormalize(t *testing.T) {
	s, err := Settings{Language: "DE-de", AutoInsert: true, ConfirmBeforeAdd: true}.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Language != "de-DE" {
		t.Errorf("expected de-DE, got %s", s.Language)
	}
	if !s.ShouldConfirm() {
		t.Error("expected confirmation with both toggles on")
	}

	if _, err := (Settings{Language: "tlh"}).Normalize(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	got, _ := m.Load(ctx)
	if got != Defaults() {
		t.Errorf("expected defaults, got %+v", got)
	}

	if err := m.Save(ctx, Settings{Language: "ja-JP", AutoInsert: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = m.Load(ctx)
	if got.Language != "ja-JP" || !got.AutoInsert {
		t.Errorf("unexpected settings %+v", got)
	}

	if err := m.Save(ctx, Settings{Language: "xx"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
	got, _ = m.Load(ctx)
	if got.Language != "ja-JP" {
		t.Errorf("expected invalid save to leave settings untouched, got %+v", got)
	}
}

func TestFileStore_MissingFileYieldsDefaults(t *testing.T) {
	f := NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"))

	got, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Defaults() {
		t.Errorf("expected defaults, got %+v", got)
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	f := NewFileStore(path)

	want := Settings{Language: "es-ES", AutoInsert: true, ConfirmBeforeAdd: false}
	if err := f.Save(ctx, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := NewFileStore(path).Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the settings file, found %d entries", len(entries))
	}
}

func TestFileStore_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("language: fr-FR\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Language != "fr-FR" || !got.ConfirmBeforeAdd {
		t.Errorf("unexpected settings %+v", got)
	}
}

func TestFileStore_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	os.WriteFile(path, []byte("language: [unterminated"), 0o644)

	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Error("expected parse error")
	}

	os.WriteFile(path, []byte("language: tlh-001\n"), 0o644)
	if _, err := NewFileStore(path).Load(context.Background()); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for unsupported stored language, got %v", err)
	}
}

func TestHashRoundTrip(t *testing.T) {
	want := Settings{Language: "ko-KR", AutoInsert: true, ConfirmBeforeAdd: false}
	fields := map[string]string{}
	for k, v := range toHash(want) {
		fields[k] = v.(string)
	}
	if got := fromHash(fields); got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestFromHash_MissingFields(t *testing.T) {
	got := fromHash(map[string]string{fieldAutoInsert: "maybe"})
	if got != Defaults() {
		t.Errorf("expected defaults for empty or malformed hash, got %+v", got)
	}
}

func TestRedisStore_Key(t *testing.T) {
	r := NewRedisStore(nil, "voice-scribe:settings:", "default")
	if r.Key() != "voice-scribe:settings:default" {
		t.Errorf("unexpected key %s", r.Key())
	}
}

// TestRedisStore_Live runs against a real server when REDIS_ADDR is set.
func TestRedisStore_Live(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	r := NewRedisStore(client, "voice-scribe-test:", t.Name())
	defer client.Del(ctx, r.Key())

	want := Settings{Language: "hi-IN", AutoInsert: true, ConfirmBeforeAdd: true}
	if err := r.Save(ctx, want); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := r.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}
