package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Toast kinds.
const (
	ToastSuccess = "success"
	ToastError   = "error"
)

// Toaster shows transient messages in #toast. Each toast gets its own id;
// a dismissal timer only ever hides the toast it was scheduled for, so a
// newer message is never cut short by an older timer.
type Toaster struct {
	view     *View
	duration time.Duration

	mu      sync.Mutex
	current string
	timer   *time.Timer
}

// NewToaster creates a toaster that hides messages after d.
func NewToaster(v *View, d time.Duration) *Toaster {
	if d <= 0 {
		d = 3 * time.Second
	}
	return &Toaster{view: v, duration: d}
}

// Show displays message with the given kind ("success" or "error").
func (t *Toaster) Show(message, kind string) {
	id := uuid.NewString()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.current = id
	t.view.Update(func(b *Bindings) {
		b.Toast.SetText(message)
		b.Toast.SetAttr("class", "toast "+kind)
		b.Toast.SetAttr("data-toast-id", id)
	}, IDToast)
	t.timer = time.AfterFunc(t.duration, func() { t.dismiss(id) })
}

// Current returns the id of the toast on screen.
func (t *Toaster) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Toaster) dismiss(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != id {
		return
	}
	t.view.Update(func(b *Bindings) {
		b.Toast.AddClass("hidden")
	}, IDToast)
}

// Loading is the counted loading overlay. The overlay shows on the first
// outstanding acquisition and hides when the last one is released.
type Loading struct {
	view *View

	mu sync.Mutex
	n  int
}

// NewLoading creates the overlay controller.
func NewLoading(v *View) *Loading {
	return &Loading{view: v}
}

// Acquire shows the overlay. The returned release hides it again once no
// other acquisition is outstanding; calling it more than once is harmless.
func (l *Loading) Acquire() (release func()) {
	l.acquire()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.n--
			if l.n == 0 {
				l.set(false)
			}
		})
	}
}

func (l *Loading) acquire() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.n++
	if l.n == 1 {
		l.set(true)
	}
}

// Active reports the number of outstanding acquisitions.
func (l *Loading) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

// set must be called with mu held.
func (l *Loading) set(visible bool) {
	l.view.Update(func(b *Bindings) {
		if visible {
			b.LoadingOverlay.RemoveClass("hidden")
		} else {
			b.LoadingOverlay.AddClass("hidden")
		}
	}, IDLoading)
}
