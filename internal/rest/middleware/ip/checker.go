package ip

import (
	"net"
	"strings"

	"go.uber.org/zap"
)

// privateCIDRs lists private and special-use ranges that never identify a real client.
var privateCIDRs = [...]string{
	// IPv4 ranges
	"0.0.0.0/8",          // RFC 1122 - "This" network
	"10.0.0.0/8",         // RFC 1918 - Private network (24-bit block)
	"100.64.0.0/10",      // RFC 6598 - Carrier-grade NAT
	"127.0.0.0/8",        // RFC 1122 - Localhost
	"169.254.0.0/16",     // RFC 3927 - Link-local
	"172.16.0.0/12",      // RFC 1918 - Private network (20-bit block)
	"192.0.0.0/24",       // RFC 5736 - IANA IPv4 Special Purpose Address Registry
	"192.0.2.0/24",       // RFC 5737 - TEST-NET-1
	"192.88.99.0/24",     // RFC 3068 - Formerly used for IPv6 to IPv4 relay
	"192.168.0.0/16",     // RFC 1918 - Private network (16-bit block)
	"198.18.0.0/15",      // RFC 2544 - Benchmarking
	"198.51.100.0/24",    // RFC 5737 - TEST-NET-2
	"203.0.113.0/24",     // RFC 5737 - TEST-NET-3
	"224.0.0.0/4",        // RFC 3171 - Multicast
	"233.252.0.0/24",     // RFC 5771 - MCAST-TEST-NET
	"240.0.0.0/4",        // RFC 1112 - Reserved for future use
	"255.255.255.255/32", // RFC 919 - Limited broadcast

	// IPv6 ranges
	"::1/128",       // Localhost IPv6
	"fc00::/7",      // Unique local address IPv6
	"fe80::/10",     // Link local address IPv6
	"ff00::/8",      // IPv6 multicast
	"2001:db8::/32", // IPv6 documentation prefix
}

// Checker validates IP addresses against private ranges and the trusted proxy list.
type Checker struct {
	private []*net.IPNet
	trusted []*net.IPNet
	logger  *zap.Logger
}

// NewChecker creates a Checker. Trusted proxies may be plain addresses or CIDRs;
// unparseable entries are logged and skipped.
func NewChecker(logger *zap.Logger, trustedProxies []string) *Checker {
	c := &Checker{
		private: make([]*net.IPNet, 0, len(privateCIDRs)),
		logger:  logger,
	}

	for _, cidr := range privateCIDRs {
		_, ipNet, _ := net.ParseCIDR(cidr)
		c.private = append(c.private, ipNet)
	}

	c.trusted = c.parseCIDRs(trustedProxies)
	return c
}

// ValidateIP returns the address if it parses and is public, otherwise UnknownIP.
func (c *Checker) ValidateIP(ip string) string {
	parsedIP := net.ParseIP(strings.TrimSpace(ip))
	if parsedIP == nil || !c.IsValidPublicIP(parsedIP) {
		return UnknownIP
	}
	return parsedIP.String()
}

// IsValidPublicIP reports whether ip is a global unicast address outside every private range.
func (c *Checker) IsValidPublicIP(ip net.IP) bool {
	if ip == nil || !ip.IsGlobalUnicast() {
		return false
	}

	for _, ipNet := range c.private {
		if ipNet.Contains(ip) {
			return false
		}
	}
	return true
}

// IsTrustedProxy reports whether ip belongs to a trusted proxy.
func (c *Checker) IsTrustedProxy(ip net.IP) bool {
	for _, proxy := range c.trusted {
		if proxy.Contains(ip) {
			return true
		}
	}
	return false
}

// parseCIDRs parses proxy entries into networks.
func (c *Checker) parseCIDRs(entries []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil {
				bits := 128
				if ip.To4() != nil {
					ip = ip.To4()
					bits = 32
				}
				nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
				continue
			}
		}

		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			c.logger.Error("Invalid trusted proxy",
				zap.String("entry", entry),
				zap.Error(err))
			continue
		}
		nets = append(nets, ipNet)
	}
	return nets
}
