package security

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"
)

// PolicyStore holds the per-chat "security enabled" flags. Chats never
// toggled are disabled. Every mutation rewrites the whole snapshot file
// before returning, so a concurrent reader never observes a partial write.
type PolicyStore struct {
	path     string
	mutex    sync.RWMutex
	policies map[int64]bool
}

func NewPolicyStore(path string) *PolicyStore {
	return &PolicyStore{
		path:     path,
		policies: make(map[int64]bool),
	}
}

// Load reads the persisted snapshot. A missing or malformed file degrades to
// an empty map, which means security disabled everywhere. Never fatal.
func (p *PolicyStore) Load() {
	entry := p.getLogEntry()

	raw, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			entry.Warn("policy snapshot not found, starting empty")
			return
		}
		entry.WithField("error", err.Error()).Error("cant read policy snapshot")
		return
	}

	persisted := make(map[string]bool)
	if err := json.Unmarshal(raw, &persisted); err != nil {
		entry.WithField("error", err.Error()).Error("cant decode policy snapshot")
		return
	}

	policies := make(map[int64]bool, len(persisted))
	for key, enabled := range persisted {
		chatID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			entry.WithField("key", key).Error("cant parse chat id in policy snapshot")
			return
		}
		policies[chatID] = enabled
	}

	p.mutex.Lock()
	p.policies = policies
	p.mutex.Unlock()
	entry.WithField("chats", len(policies)).Info("policy snapshot loaded")
}

func (p *PolicyStore) Get(chatID int64) bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.policies[chatID]
}

// Set updates the flag and persists the full map before returning. Toggles
// are rare, so a serialized full rewrite is acceptable.
func (p *PolicyStore) Set(chatID int64, enabled bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.policies[chatID] = enabled
	return p.persistLocked()
}

func (p *PolicyStore) persistLocked() error {
	persisted := make(map[string]bool, len(p.policies))
	for chatID, enabled := range p.policies {
		persisted[strconv.FormatInt(chatID, 10)] = enabled
	}

	raw, err := json.Marshal(persisted)
	if err != nil {
		return err
	}

	// Write-then-rename keeps the rewrite atomic for concurrent readers.
	tmp, err := os.CreateTemp(filepath.Dir(p.path), filepath.Base(p.path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p.path)
}

func (p *PolicyStore) getLogEntry() *log.Entry {
	return log.WithField("object", "PolicyStore")
}
