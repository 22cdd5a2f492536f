package ip

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/uptrace/bunrouter"
	"github.com/wheresmywater/backend/internal/setup/config"
	"go.uber.org/zap"
)

type ipCtxKey struct{}

// UnknownIP is returned when no valid IP can be determined.
const UnknownIP = "unknown"

// defaultHeaders are checked after any configured custom headers.
var defaultHeaders = []string{"X-Forwarded-For", "X-Real-IP"}

// FromContext retrieves the client IP from the context.
func FromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(ipCtxKey{}).(string); ok {
		return ip
	}
	return UnknownIP
}

// WithIP returns a context carrying the client IP.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipCtxKey{}, ip)
}

// Middleware detects the client IP and stores it in the request context.
type Middleware struct {
	checker *Checker
	headers []string
	config  *config.IP
	logger  *zap.Logger
}

// New creates a new IP middleware.
func New(logger *zap.Logger, cfg *config.IP) *Middleware {
	headers := make([]string, 0, len(cfg.CustomHeaders)+len(defaultHeaders))
	headers = append(headers, cfg.CustomHeaders...)
	headers = append(headers, defaultHeaders...)

	return &Middleware{
		checker: NewChecker(logger, cfg.TrustedProxies),
		headers: headers,
		config:  cfg,
		logger:  logger.Named("ip_middleware"),
	}
}

// AsRESTMiddleware returns a bunrouter middleware handler for IP detection.
func (m *Middleware) AsRESTMiddleware(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		ip := m.ClientIP(req.RemoteAddr, req.Header)
		if ip == UnknownIP {
			m.logger.Warn("No valid client IP found in request",
				zap.String("remoteAddr", req.RemoteAddr))
			http.Error(w, "Invalid IP address", http.StatusForbidden)
			return nil
		}

		return next(w, req.WithContext(WithIP(req.Context(), ip)))
	}
}

// ClientIP resolves the client address. Forwarded headers are only honored
// when header validation is enabled and the peer is a trusted proxy.
func (m *Middleware) ClientIP(remoteAddr string, header http.Header) string {
	remoteIP := parseRemoteAddr(remoteAddr)
	if remoteIP == nil {
		m.logger.Debug("Failed to parse remote address", zap.String("addr", remoteAddr))
		return UnknownIP
	}

	if m.config.EnableHeaderValidation && m.checker.IsTrustedProxy(remoteIP) {
		if ip := m.ipFromHeaders(header); ip != UnknownIP {
			m.logger.Debug("Found valid IP in headers", zap.String("ip", ip))
			return ip
		}
		m.logger.Debug("No valid IP found in headers")
	}

	return remoteIP.String()
}

// ipFromHeaders returns the first public IP found in the configured headers.
func (m *Middleware) ipFromHeaders(header http.Header) string {
	for _, h := range m.headers {
		value := header.Get(h)
		if value == "" {
			continue
		}

		if strings.Contains(h, "Forward") {
			if validated := m.forwardedIP(value); validated != UnknownIP {
				return validated
			}
		} else if validated := m.checker.ValidateIP(value); validated != UnknownIP {
			return validated
		}

		m.logger.Debug("IP validation failed",
			zap.String("header", h),
			zap.String("value", value))
	}
	return UnknownIP
}

// forwardedIP walks a forwarded chain from the closest hop outward.
func (m *Middleware) forwardedIP(forwarded string) string {
	ips := strings.Split(forwarded, ",")
	for i := len(ips) - 1; i >= 0; i-- {
		if validated := m.checker.ValidateIP(ips[i]); validated != UnknownIP {
			return validated
		}
	}
	return UnknownIP
}

func parseRemoteAddr(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	return net.ParseIP(host)
}
