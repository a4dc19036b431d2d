package lms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celerix-dev/celerix-support/pkg/schema"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL, Backoff: time.Millisecond})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Options{})
	assert.Error(t, err)

	_, err = NewClient(Options{BaseURL: "not-a-url"})
	assert.Error(t, err)

	_, err = NewClient(Options{BaseURL: "http://lms.test", ClientID: "id"})
	assert.Error(t, err, "client id without secret and token URL")
}

func TestClient_ResolveUser(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/support/v1/users/lookup", r.URL.Path)
		assert.Equal(t, "AnonyMouse", r.URL.Query().Get("identifier"))
		writeJSON(w, map[string]any{
			"user":   map[string]any{"id": 42, "username": "AnonyMouse", "email": "anon@example.com"},
			"errors": []map[string]any{{"text": "Password reset pending", "type": "warning"}},
		})
	}))

	got, err := c.ResolveUser(context.Background(), "AnonyMouse")
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, int64(42), got.User.ID)
	assert.Equal(t, schema.ErrorTypeWarning, got.Errors[0].Type)
}

func TestClient_ResolveUser_UntypedErrorDefaultsToError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"errors":           []map[string]any{{"text": "User is retired"}},
			"retirementStatus": map[string]any{"canCancelRetirement": true, "retirementId": 123},
		})
	}))

	got, err := c.ResolveUser(context.Background(), "retired_user")
	require.NoError(t, err)
	assert.Equal(t, schema.ErrorTypeError, got.Errors[0].Type)
	require.NotNil(t, got.RetirementStatus)
	assert.Equal(t, int64(123), got.RetirementStatus.RetirementID)
}

func TestClient_ResolveUser_RejectsUserWithoutID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"user": map[string]any{"username": "ghost"}})
	}))

	_, err := c.ResolveUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClient_NotFound(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))

	_, err := c.GetUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), calls.Load(), "404 must not be retried")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, []schema.Enrollment{{CourseID: "course-v1:edX+DemoX+Demo_Course", Mode: "audit"}})
	}))

	got, err := c.Enrollments(context.Background(), schema.UserSummary{ID: 1, Username: "edx"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.SSORecords(context.Background(), schema.UserSummary{ID: 1, Username: "edx"})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Code)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := c.Licenses(context.Background(), schema.UserSummary{ID: 1, Email: "a@example.com"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_InvalidJSON(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))

	_, err := c.SAMLProviders(context.Background())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClient_PaginatedResults(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/entitlements/v1/entitlements/", r.URL.Path)
		assert.Equal(t, "edx", r.URL.Query().Get("user"))
		writeJSON(w, map[string]any{"results": []map[string]any{{"uuid": "e1", "mode": "verified"}}})
	}))

	got, err := c.Entitlements(context.Background(), schema.UserSummary{ID: 1, Username: "edx"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].UUID)
}

func TestClient_OnboardingEmptyIsNil(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{})
	}))

	got, err := c.OnboardingStatus(context.Background(), schema.UserSummary{ID: 1, Username: "edx"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_InspectorQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "testuser", q.Get("external_user_key"))
		assert.Equal(t, "testX", q.Get("org_key"))
		assert.False(t, q.Has("username"))
		writeJSON(w, map[string]any{
			"learner_program_enrollments": map[string]any{
				"user":        map[string]any{"username": "verified", "email": "verified@example.com"},
				"enrollments": []any{},
			},
		})
	}))

	got, err := c.ProgramEnrollmentsInspector(context.Background(), schema.InspectorQuery{ExternalKey: "testuser", OrgKey: "testX"})
	require.NoError(t, err)
	require.NotNil(t, got.LearnerProgramEnrollments)
	assert.Equal(t, "verified", got.LearnerProgramEnrollments.User.Username)
}

func TestClient_CancelRetirement(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "123", r.PostForm.Get("retirement_id"))
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.NoError(t, c.CancelRetirement(context.Background(), 123))
}

func TestClient_ClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "jwt", r.PostForm.Get("token_type"))
		writeJSON(w, map[string]any{"access_token": "tok", "token_type": "JWT", "expires_in": 3600})
	})
	mux.HandleFunc("/api/user/v1/accounts/edx", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "JWT tok", r.Header.Get("Authorization"))
		writeJSON(w, schema.UserSummary{ID: 3, Username: "edx"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/oauth2/access_token",
		ClientID:     "support",
		ClientSecret: "secret",
	})
	require.NoError(t, err)

	got, err := c.GetUser(context.Background(), "edx")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)
}

func TestClient_PathSegmentsEscapedOnce(t *testing.T) {
	var paths, rawPaths []string
	var mu sync.Mutex
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		rawPaths = append(rawPaths, r.URL.EscapedPath())
		mu.Unlock()
		writeJSON(w, []any{})
	}))

	_, err := c.Enrollments(context.Background(), schema.UserSummary{ID: 1, Username: "josé"})
	require.NoError(t, err)
	_, err = c.SSORecords(context.Background(), schema.UserSummary{ID: 2, Username: "a/b"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/support/enrollment/josé", "/support/sso_records/a/b"}, paths)
	assert.Equal(t, "/support/enrollment/jos%C3%A9", rawPaths[0])
	assert.Equal(t, "/support/sso_records/a%2Fb", rawPaths[1], "a slash inside a username stays one segment")
}
