package security

import (
	"sync"
	"time"
)

type rateKey struct {
	userID int64
	chatID int64
}

// RateTracker keeps a sliding window of message timestamps per (user, chat)
// pair. Pruning is lazy, on the next check for the pair, rather than driven
// by a timer.
type RateTracker struct {
	window    time.Duration
	threshold int

	mutex   sync.Mutex
	windows map[rateKey][]time.Time
}

func NewRateTracker(window time.Duration, threshold int) *RateTracker {
	return &RateTracker{
		window:    window,
		threshold: threshold,
		windows:   make(map[rateKey][]time.Time),
	}
}

// RecordAndCheck appends now to the pair's window, drops entries that fell
// out of the trailing window and reports whether the sender is flooding.
// Entries exactly window old are dropped too ("< window" strict).
func (t *RateTracker) RecordAndCheck(userID, chatID int64, now time.Time) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	key := rateKey{userID: userID, chatID: chatID}
	timestamps := append(t.windows[key], now)

	retained := timestamps[:0]
	for _, ts := range timestamps {
		if now.Sub(ts) < t.window {
			retained = append(retained, ts)
		}
	}
	t.windows[key] = retained

	return len(retained) > t.threshold
}

// Sweep evicts pairs whose newest entry fell out of the window. Lazy pruning
// alone never frees pairs that stop messaging, so a periodic sweep keeps
// memory bounded on long runs. Returns the number of evicted pairs.
func (t *RateTracker) Sweep(now time.Time) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	evicted := 0
	for key, timestamps := range t.windows {
		if len(timestamps) == 0 || now.Sub(timestamps[len(timestamps)-1]) >= t.window {
			delete(t.windows, key)
			evicted++
		}
	}
	return evicted
}
