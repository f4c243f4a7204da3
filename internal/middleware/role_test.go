package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/localpro/backend/internal/models"
)

type stubValidator struct {
	accountID uuid.UUID
	role      string
	err       error
}

func (s *stubValidator) ValidateToken(_ context.Context, _ string) (uuid.UUID, string, error) {
	return s.accountID, s.role, s.err
}

func TestJWTAuth_ValidToken(t *testing.T) {
	accountID := uuid.New()
	validator := &stubValidator{accountID: accountID, role: models.RoleCallCenter}

	var seen *Staff
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = StaffFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	mw := JWTAuth(validator)(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer some.jwt.token")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil || seen.AccountID != accountID || seen.Role != models.RoleCallCenter {
		t.Errorf("unexpected staff identity: %+v", seen)
	}
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	validator := &stubValidator{err: errors.New("expired")}
	mw := JWTAuth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired.jwt")
	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cases := []struct {
		name     string
		staff    *Staff
		allowed  []string
		expected int
	}{
		{
			name:     "allowed role passes",
			staff:    &Staff{AccountID: uuid.New(), Role: models.RoleCallCenter},
			allowed:  []string{models.RoleCallCenter, models.RoleAdmin},
			expected: http.StatusOK,
		},
		{
			name:     "admin passes where listed",
			staff:    &Staff{AccountID: uuid.New(), Role: models.RoleAdmin},
			allowed:  []string{models.RolePaymentApprover, models.RoleAdmin},
			expected: http.StatusOK,
		},
		{
			name:     "wrong role rejected",
			staff:    &Staff{AccountID: uuid.New(), Role: models.RoleVerifier},
			allowed:  []string{models.RolePaymentApprover},
			expected: http.StatusForbidden,
		},
		{
			name:     "no identity rejected",
			staff:    nil,
			allowed:  []string{models.RoleAdmin},
			expected: http.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mw := RequireRole(tc.allowed...)(ok)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.staff != nil {
				req = req.WithContext(WithStaff(req.Context(), tc.staff))
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			if rec.Code != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, rec.Code)
			}
		})
	}
}
