package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gudangmitra/gudang-mitra-backend/api/responses"
	pkgerrors "github.com/gudangmitra/gudang-mitra-backend/pkg/errors"
	"github.com/gudangmitra/gudang-mitra-backend/pkg/logger"
)

// maxPeekBytes bounds how much of a login body is buffered to find the email.
const maxPeekBytes = 16 << 10

// RateLimitStore counts hits in fixed windows.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// rateDimension is one counter a request is charged against, such as the
// caller IP or the email being logged into.
type rateDimension struct {
	name     string
	limit    int64
	readBody bool
	subject  func(r *http.Request, body []byte) string
}

// AuthRateLimitPolicy throttles a credential endpoint per IP and per target
// email. Emails are hashed before they reach Redis or the logs.
type AuthRateLimitPolicy struct {
	name   string
	window time.Duration
	dims   []rateDimension
}

func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	policy := AuthRateLimitPolicy{name: name, window: window}
	if ipLimit > 0 {
		policy.dims = append(policy.dims, rateDimension{
			name:    "ip",
			limit:   int64(ipLimit),
			subject: func(r *http.Request, _ []byte) string { return remoteHost(r) },
		})
	}
	if emailLimit > 0 {
		policy.dims = append(policy.dims, rateDimension{
			name:     "email",
			limit:    int64(emailLimit),
			readBody: true,
			subject:  func(_ *http.Request, body []byte) string { return emailDigest(body) },
		})
	}
	return policy
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.dims) > 0
}

func (p AuthRateLimitPolicy) readsBody() bool {
	for _, dim := range p.dims {
		if dim.readBody {
			return true
		}
	}
	return false
}

// AuthRateLimit rejects requests with 429 once any dimension of policy is
// exhausted for the current window. A Redis failure fails closed.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.readsBody() {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			for _, dim := range policy.dims {
				subject := dim.subject(r, body)
				if subject == "" {
					continue
				}
				scope := policy.name + ":" + dim.name + ":" + subject
				count, err := store.IncrWithTTL(ctx, store.RateLimitKey(scope), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > dim.limit {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":    policy.name,
							"dimension": dim.name,
							"subject":   subject,
							"attempts":  count,
							"limit":     dim.limit,
						}), "auth.rate_limit.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// remoteHost reads r.RemoteAddr only. Forwarded headers are honoured when
// the router runs chi's RealIP in front, which rewrites RemoteAddr.
func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func emailDigest(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:12])
}
