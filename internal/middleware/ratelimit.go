//nolint:tagliatelle // superior snake-case yo.
package middleware

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimitConfig limits state-changing API calls per client IP.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	ExemptIPs         []string      `yaml:"exempt_ips"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"` // Forget a client's bucket after this long
}

// Validate validates and sets defaults for RateLimitConfig.
func (c *RateLimitConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 10
	}

	if c.Burst == 0 {
		c.Burst = 20
	}

	if c.IdleTimeout == 0 {
		c.IdleTimeout = 10 * time.Minute
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be positive, got %v", c.RequestsPerSecond)
	}

	if c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", c.Burst)
	}

	for _, entry := range c.ExemptIPs {
		if parseExempt(entry) == nil {
			return fmt.Errorf("exempt_ips: invalid IP or CIDR %q", entry)
		}
	}

	return nil
}

var rateLimitDeniedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_rate_limit_denied_total",
		Help: "Total number of requests rejected by the rate limiter",
	},
	[]string{"method"},
)

func init() {
	prometheus.MustRegister(rateLimitDeniedTotal)
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastClean time.Time
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if now.Sub(l.lastClean) > l.cfg.IdleTimeout {
		for key, c := range l.clients {
			if now.Sub(c.lastSeen) > l.cfg.IdleTimeout {
				delete(l.clients, key)
			}
		}

		l.lastClean = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[ip] = c
	}

	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

// RateLimit returns middleware that applies a token bucket per client IP to
// POST, PUT and DELETE requests under /api/. Reads are never limited.
func RateLimit(log logrus.FieldLogger, cfg RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	limiter := &ipLimiter{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}

	exemptNets := make([]*net.IPNet, 0, len(cfg.ExemptIPs))
	for _, entry := range cfg.ExemptIPs {
		if network := parseExempt(entry); network != nil {
			exemptNets = append(exemptNets, network)
		}
	}

	retryAfter := strconv.Itoa(max(1, int(1/cfg.RequestsPerSecond)))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limited(r) {
				next.ServeHTTP(w, r)

				return
			}

			ip := extractClientIP(r)

			if isExempt(ip, exemptNets) || limiter.allow(ip) {
				next.ServeHTTP(w, r)

				return
			}

			rateLimitDeniedTotal.WithLabelValues(r.Method).Inc()

			log.WithFields(logrus.Fields{
				"ip":   ip,
				"path": r.URL.Path,
			}).Warn("rate limit exceeded")

			w.Header().Set("Retry-After", retryAfter)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)

			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":  "rate limit exceeded",
				"status": http.StatusTooManyRequests,
			})
		})
	}
}

func limited(r *http.Request) bool {
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// extractClientIP returns the client IP, preferring X-Forwarded-For and
// then X-Real-IP over the connection address.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}

// parseExempt parses a CIDR or a single IP.
func parseExempt(entry string) *net.IPNet {
	if _, network, err := net.ParseCIDR(entry); err == nil {
		return network
	}

	ip := net.ParseIP(entry)
	if ip == nil {
		return nil
	}

	bits := 128
	if ip.To4() != nil {
		bits = 32
	}

	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
}

func isExempt(ip string, exemptNets []*net.IPNet) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, network := range exemptNets {
		if network.Contains(parsed) {
			return true
		}
	}

	return false
}
