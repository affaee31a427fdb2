package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter: ventana fija en proceso. Es el default cuando no hay Redis
// configurado; con una sola réplica el contador local es exacto.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	hits  int64
}

func NewMemoryLimiter(max int, win time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		Max:     int64(max),
		Window:  win,
		windows: make(map[string]*window),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	start := now.Truncate(l.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w == nil || !w.start.Equal(start) {
		w = &window{start: start}
		l.windows[key] = w
		l.maybeSweep(start)
	}
	w.hits++

	allowed := w.hits <= l.Max
	remaining := l.Max - w.hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{Allowed: allowed, Remaining: remaining, CurrentHits: w.hits}
	if !allowed {
		res.RetryAfter = start.Add(l.Window).Sub(now)
	}
	return res, nil
}

// maybeSweep descarta ventanas vencidas para que el mapa no crezca sin tope.
// Se llama con el lock tomado.
func (l *MemoryLimiter) maybeSweep(current time.Time) {
	if len(l.windows) < 1024 {
		return
	}
	for k, w := range l.windows {
		if !w.start.Equal(current) {
			delete(l.windows, k)
		}
	}
}
