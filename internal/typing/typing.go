package typing

import (
	"sync"
	"time"
)

// Window is how long a typing-start stays active without renewal.
const Window = 6000 * time.Millisecond

type Callback func(userID int64, channelID int64)

type entry struct {
	last      time.Time
	channelID int64
	expired   bool
}

// Tracker debounces typing-start events per user. A user with no entry has
// never started, an expired entry has already produced its stop.
type Tracker struct {
	mutex   sync.Mutex
	entries map[int64]*entry
	window  time.Duration

	onStart Callback
	onStop  Callback

	now       func() time.Time
	afterFunc func(time.Duration, func())
}

func New(window time.Duration, onStart Callback, onStop Callback) *Tracker {
	if window <= 0 {
		window = Window
	}
	return &Tracker{
		entries: make(map[int64]*entry),
		window:  window,
		onStart: onStart,
		onStop:  onStop,
		now:     time.Now,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Start records a typing-start for the user and schedules the expiry check.
func (t *Tracker) Start(userID int64, channelID int64) {
	t.mutex.Lock()
	e, exists := t.entries[userID]
	started := !exists || e.expired
	if !exists {
		e = &entry{}
		t.entries[userID] = e
	}
	e.last = t.now()
	e.channelID = channelID
	e.expired = false
	t.mutex.Unlock()

	if started && t.onStart != nil {
		t.onStart(userID, channelID)
	}

	t.afterFunc(t.window, func() { t.check(userID) })
}

func (t *Tracker) check(userID int64) {
	t.mutex.Lock()
	e, exists := t.entries[userID]
	if !exists || e.expired {
		t.mutex.Unlock()
		return
	}
	if t.now().Sub(e.last) < t.window {
		t.mutex.Unlock()
		return
	}
	e.expired = true
	channelID := e.channelID
	t.mutex.Unlock()

	if t.onStop != nil {
		t.onStop(userID, channelID)
	}
}

func (t *Tracker) IsTyping(userID int64) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	e, exists := t.entries[userID]
	return exists && !e.expired
}
