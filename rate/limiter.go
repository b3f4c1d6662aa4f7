package rate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter tracks one token bucket per client id and evicts buckets that
// have been idle longer than the expiry.
type Limiter struct {
	expiry   time.Duration
	burst    int
	limitRPS float64

	mu      sync.Mutex
	clients map[string]*clientLimiter
	stop    chan struct{}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLimiter allows limitRPS requests per second with the given burst;
// expiry is the idle eviction window in minutes.
func NewLimiter(burst int, expiry int, limitRPS float64) *Limiter {
	l := &Limiter{
		expiry:   time.Duration(expiry) * time.Minute,
		burst:    burst,
		limitRPS: limitRPS,
		clients:  make(map[string]*clientLimiter),
		stop:     make(chan struct{}),
	}
	go l.evict()
	return l
}

// Check reports whether the client may proceed, counting this call.
func (l *Limiter) Check(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cl, ok := l.clients[id]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(l.limitRPS), l.burst),
		}
		l.clients[id] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter.Allow()
}

// Close stops the background eviction loop.
func (l *Limiter) Close() {
	close(l.stop)
}

func (l *Limiter) evict() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
		}

		l.mu.Lock()
		for id, cl := range l.clients {
			if time.Since(cl.lastAccess) > l.expiry {
				delete(l.clients, id)
			}
		}
		l.mu.Unlock()
	}
}

// Every converts a per-request interval into a requests-per-second limit.
func Every(interval time.Duration) float64 {
	return float64(rate.Every(interval))
}
