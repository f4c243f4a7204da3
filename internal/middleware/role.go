package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const ctxStaffKey contextKey = "staff"

// TokenValidator validates a session token and returns the account ID and role.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// Staff is the identity extracted from a validated session token.
type Staff struct {
	AccountID uuid.UUID
	Role      string
}

// StaffFromCtx returns the identity set by JWTAuth, or nil.
func StaffFromCtx(ctx context.Context) *Staff {
	s, _ := ctx.Value(ctxStaffKey).(*Staff)
	return s
}

// WithStaff returns a context carrying the given identity.
func WithStaff(ctx context.Context, s *Staff) context.Context {
	return context.WithValue(ctx, ctxStaffKey, s)
}

// JWTAuth validates the Bearer session token and sets the caller's account ID
// and role into request context.
func JWTAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			accountID, role, err := validator.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := WithStaff(r.Context(), &Staff{AccountID: accountID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose token role is not in the allowed set.
// Must run after JWTAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := StaffFromCtx(r.Context())
			if s == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if !allowed[s.Role] {
				http.Error(w, `{"error":"role `+strings.ReplaceAll(s.Role, `"`, "")+` is not allowed"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
