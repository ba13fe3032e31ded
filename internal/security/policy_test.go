package security

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestPolicyDefaultsDisabled(t *testing.T) {
	t.Parallel()

	store := NewPolicyStore(filepath.Join(t.TempDir(), "security_status.json"))
	store.Load()

	for _, chatID := range []int64{0, 1, -1001234567890, 42} {
		if store.Get(chatID) {
			t.Fatalf("chat %d should default to disabled", chatID)
		}
	}
}

func TestPolicyToggleRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "security_status.json")
	store := NewPolicyStore(path)

	steps := []struct {
		chatID  int64
		enabled bool
	}{
		{chatID: 5, enabled: true},
		{chatID: 5, enabled: false},
		{chatID: -100987, enabled: true},
	}

	for _, step := range steps {
		if err := store.Set(step.chatID, step.enabled); err != nil {
			t.Fatalf("set policy: %v", err)
		}
		if got := store.Get(step.chatID); got != step.enabled {
			t.Fatalf("unexpected policy after set: got %v want %v", got, step.enabled)
		}

		reloaded := NewPolicyStore(path)
		reloaded.Load()
		if got := reloaded.Get(step.chatID); got != step.enabled {
			t.Fatalf("unexpected policy after reload: got %v want %v", got, step.enabled)
		}
	}
}

func TestPolicySnapshotUsesStringKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "security_status.json")
	store := NewPolicyStore(path)
	if err := store.Set(-1001234567890, true); err != nil {
		t.Fatalf("set policy: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	persisted := map[string]bool{}
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	enabled, ok := persisted["-1001234567890"]
	if !ok || !enabled {
		t.Fatalf("unexpected snapshot contents: %v", persisted)
	}
}

func TestPolicyLoadMissingFile(t *testing.T) {
	t.Parallel()

	store := NewPolicyStore(filepath.Join(t.TempDir(), "nope.json"))
	store.Load()
	if store.Get(1) {
		t.Fatalf("missing snapshot should fail open to disabled")
	}
}

func TestPolicyLoadMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "security_status.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write malformed snapshot: %v", err)
	}

	store := NewPolicyStore(path)
	store.Load()
	if store.Get(1) {
		t.Fatalf("malformed snapshot should fail open to disabled")
	}

	// A toggle after a failed load still persists cleanly.
	if err := store.Set(1, true); err != nil {
		t.Fatalf("set policy: %v", err)
	}
	reloaded := NewPolicyStore(path)
	reloaded.Load()
	if !reloaded.Get(1) {
		t.Fatalf("expected policy to survive rewrite after malformed load")
	}
}
