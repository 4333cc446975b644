package transport

import (
	"net"
	"net/http"
	"sync"
)

const (
	DefaultMaxConnsPerIP = 5
	DefaultMaxTotalConns = 1000
)

// Limiter caps concurrent connections per remote IP and in total
type Limiter struct {
	mu         sync.Mutex
	perIP      int
	total      int
	ipConns    map[string]int
	totalConns int
}

// NewLimiter creates a limiter; non-positive limits use the defaults
func NewLimiter(perIP, total int) *Limiter {
	if perIP <= 0 {
		perIP = DefaultMaxConnsPerIP
	}
	if total <= 0 {
		total = DefaultMaxTotalConns
	}
	return &Limiter{perIP: perIP, total: total, ipConns: make(map[string]int)}
}

func (l *Limiter) CanAccept(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalConns < l.total && l.ipConns[ip] < l.perIP
}

// Acquire checks and tracks a connection in one step
func (l *Limiter) Acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.totalConns >= l.total || l.ipConns[ip] >= l.perIP {
		return false
	}
	l.ipConns[ip]++
	l.totalConns++
	return true
}

func (l *Limiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ipConns[ip]--
	if l.ipConns[ip] <= 0 {
		delete(l.ipConns, ip)
	}
	if l.totalConns > 0 {
		l.totalConns--
	}
}

// Total returns the tracked connection count
func (l *Limiter) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalConns
}

// RemoteIP strips the port from the request's remote address
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
