package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	providerAuth "github.com/MrEthical07/providerAuth"
)

// ClientIP resolves the caller address of a request.
//
// X-Forwarded-For is consulted only when the direct peer is inside one of
// the Trusted prefixes. The header is then walked right to left and the
// first address outside the trusted set is returned, so a client cannot
// inject an address by prepending to the header.
type ClientIP struct {
	Trusted []netip.Prefix
}

// ParseTrusted parses CIDR prefixes or bare addresses into an allowlist.
func ParseTrusted(values ...string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(v)
		if err != nil {
			return nil, err
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// Resolve returns the client address of r, or "" when RemoteAddr is not an
// IP address.
func (c ClientIP) Resolve(r *http.Request) string {
	peer, ok := parseHostAddr(r.RemoteAddr)
	if !ok {
		return ""
	}
	if !c.trusted(peer) {
		return peer.String()
	}

	var hops []string
	for _, h := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(h, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		a, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		a = a.Unmap()
		if !c.trusted(a) {
			return a.String()
		}
	}
	return peer.String()
}

// Middleware stores the resolved client IP and User-Agent in the request
// context, where the engine picks them up as defaults.
func (c ClientIP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ip := c.Resolve(r); ip != "" {
			ctx = providerAuth.WithClientIP(ctx, ip)
		}
		if ua := r.UserAgent(); ua != "" {
			ctx = providerAuth.WithUserAgent(ctx, ua)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c ClientIP) trusted(a netip.Addr) bool {
	for _, p := range c.Trusted {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

func parseHostAddr(remote string) (netip.Addr, bool) {
	host := remote
	if h, _, err := net.SplitHostPort(remote); err == nil {
		host = h
	}
	a, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return a.Unmap(), true
}
