package server

import (
	"net/http"
	"net/netip"
	"testing"
	"time"
)

func TestIPLimiterEvictsIdleClients(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newIPLimiter(1, 1)
	limiter.now = func() time.Time { return clock }

	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		if !limiter.allow(ip) {
			t.Fatalf("first request from %s should pass", ip)
		}
	}
	if limiter.allow("203.0.113.1") {
		t.Fatal("second immediate request should be limited")
	}

	clock = clock.Add(limiterIdleTTL / 2)
	limiter.allow("203.0.113.1")
	clock = clock.Add(limiterIdleTTL)
	limiter.allow("203.0.113.4")

	if got := limiter.size(); got != 1 {
		t.Fatalf("expected only the fresh client to remain, got %d", got)
	}
}

func TestForwardedClientSkipsTrustedHops(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	cases := map[string]struct {
		header http.Header
		want   string
		ok     bool
	}{
		"rightmost untrusted": {
			header: http.Header{"X-Forwarded-For": {"1.1.1.1, 198.51.100.4, 10.0.0.2"}},
			want:   "198.51.100.4",
			ok:     true,
		},
		"all trusted": {
			header: http.Header{"X-Forwarded-For": {"10.1.1.1, 10.0.0.2"}},
			want:   "10.1.1.1",
			ok:     true,
		},
		"garbage stops walk": {
			header: http.Header{"X-Forwarded-For": {"198.51.100.4, junk"}},
		},
		"real ip fallback": {
			header: http.Header{"X-Real-Ip": {"198.51.100.9"}},
			want:   "198.51.100.9",
			ok:     true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := forwardedClient(tc.header, trusted)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && got.String() != tc.want {
				t.Fatalf("client = %s, want %s", got, tc.want)
			}
		})
	}
}
