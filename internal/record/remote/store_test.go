package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamehub/identity/internal/errs"
	"github.com/gamehub/identity/internal/model"
	"github.com/gamehub/identity/internal/record"
)

func respond(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func respondData(w http.ResponseWriter, v any) {
	data, _ := json.Marshal(v)
	respond(w, http.StatusOK, envelope{Success: true, Data: data})
}

func testAccountDTO() accountDTO {
	return accountDTO{
		ID:        "user_1",
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "secret",
		Role:      "user",
		UserType:  "regular",
		IsActive:  true,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users/user_1", r.URL.Path)
		respondData(w, testAccountDTO())
	}))
	defer srv.Close()

	s := NewStore(srv.URL + "/api")
	a, err := s.Get(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Username)
	assert.Equal(t, model.TierRegular, a.Tier)
	assert.Equal(t, "secret", a.Credential)
	assert.True(t, a.LastLoginAt.IsZero())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		status int
		msg    string
		want   error
	}{
		{"duplicate username", http.StatusConflict, "username already exists", errs.ErrDuplicateUsername},
		{"duplicate email", http.StatusConflict, "email already exists", errs.ErrDuplicateEmail},
		{"not found message", http.StatusOK, "user not found", errs.ErrNotFound},
		{"login failed message", http.StatusOK, "login failed", errs.ErrLoginFailed},
		{"rate limited message", http.StatusTooManyRequests, "too many attempts", errs.ErrRateLimited},
		{"not found status", http.StatusNotFound, "gone", errs.ErrNotFound},
		{"unauthorized status", http.StatusUnauthorized, "nope", errs.ErrLoginFailed},
		{"rate limited status", http.StatusTooManyRequests, "slow down", errs.ErrRateLimited},
		{"unknown", http.StatusInternalServerError, "boom", errs.ErrBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.status, tt.msg), tt.want)
		})
	}
}

func TestCreateConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body createDTO
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body.Username)
		assert.Equal(t, "regular", body.UserType)
		assert.Equal(t, "user", body.Role)
		respond(w, http.StatusConflict, envelope{Error: "username already exists"})
	}))
	defer srv.Close()

	s := NewStore(srv.URL + "/api")
	_, err := s.Create(context.Background(), record.NewAccount{
		Username: "alice", Credential: "pw", Tier: model.TierRegular, IsActive: true,
	})
	assert.ErrorIs(t, err, errs.ErrDuplicateUsername)
}

func TestUpdateSendsTierAndRole(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "admin", body["userType"])
		assert.Equal(t, "admin", body["role"])
		_, hasUsername := body["username"]
		assert.False(t, hasUsername, "nil patch fields stay off the wire")
		d := testAccountDTO()
		d.UserType = "admin"
		d.Role = "admin"
		respondData(w, d)
	}))
	defer srv.Close()

	s := NewStore(srv.URL + "/api")
	tier := model.TierAdmin
	a, err := s.Update(context.Background(), "user_1", record.Patch{Tier: &tier})
	require.NoError(t, err)
	assert.Equal(t, model.TierAdmin, a.Tier)
}

func TestDeleteNotFoundIsFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusNotFound, envelope{Error: "user not found"})
	}))
	defer srv.Close()

	s := NewStore(srv.URL + "/api")
	deleted, err := s.Delete(context.Background(), "user_missing")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGetByEmailFiltersList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users", r.URL.Path)
		other := testAccountDTO()
		other.ID = "user_2"
		other.Username = "bob"
		other.Email = "bob@example.com"
		respondData(w, []accountDTO{testAccountDTO(), other})
	}))
	defer srv.Close()

	s := NewStore(srv.URL + "/api")
	a, err := s.GetByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user_2", a.ID)

	_, err = s.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = s.GetByEmail(context.Background(), "")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/stats", r.URL.Path)
		respondData(w, statsDTO{Total: 5, Active: 4, Admins: 1, SuperAdmins: 1, Regulars: 3})
	}))
	defer srv.Close()

	s := NewStore(srv.URL + "/api")
	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 3, st.Regulars)
}

func TestValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/validate", r.URL.Path)
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Username == "alice" && body.Password == "secret" {
			respondData(w, testAccountDTO())
			return
		}
		respond(w, http.StatusUnauthorized, envelope{Error: "login failed"})
	}))
	defer srv.Close()

	s := NewStore(srv.URL + "/api")
	a, err := s.Validate(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user_1", a.ID)

	_, err = s.Validate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, errs.ErrLoginFailed)
}

func TestValidateRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusTooManyRequests, envelope{Error: "too many attempts"})
	}))
	defer srv.Close()

	s := NewStore(srv.URL + "/api")
	_, err := s.Validate(context.Background(), "alice", "secret")
	assert.ErrorIs(t, err, errs.ErrRateLimited)
	// A lockout is an authoritative answer, not an outage.
	assert.NotErrorIs(t, err, errs.ErrBackendUnavailable)
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	s := NewStore(srv.URL+"/api", WithTimeout(time.Second))
	_, err := s.Get(context.Background(), "user_1")
	assert.ErrorIs(t, err, errs.ErrBackendUnavailable)
}

func TestMalformedPayloadIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	s := NewStore(srv.URL + "/api")
	_, err := s.Get(context.Background(), "user_1")
	assert.ErrorIs(t, err, errs.ErrBackendUnavailable)
}
