package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/api"
	"storefront/internal/credstore"
	"storefront/internal/model"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newController(t *testing.T, mux *http.ServeMux, store credstore.Store) *Controller {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := api.New(api.Options{
		BaseURL:    srv.URL + "/api",
		Store:      store,
		HTTPClient: srv.Client(),
		Logger:     discard,
	})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	c, err := New(client, discard)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func loginHandler(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	json.NewDecoder(r.Body).Decode(&body)
	if body.Password != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
		return
	}
	json.NewEncoder(w).Encode(model.CredentialPair{Access: "a1", Refresh: "r1"})
}

func TestLoginPersistsPairAndProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", loginHandler)
	mux.HandleFunc("/api/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":4,"username":"asha","email":"asha@example.com","phone":"9876543210"}`))
	})

	store := credstore.NewMemoryStore()
	c := newController(t, mux, store)

	var events []Event
	c.Subscribe(func(ev Event) { events = append(events, ev) })

	profile, err := c.Login(context.Background(), "asha", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if profile.Username != "asha" {
		t.Errorf("Username = %q, want asha", profile.Username)
	}
	if c.State() != Authenticated {
		t.Errorf("State = %v, want AUTHENTICATED", c.State())
	}

	state, _ := store.Load()
	if !state.Active() || state.Credentials.Refresh != "r1" || state.Profile.Phone != "9876543210" {
		t.Errorf("stored state = %+v", state)
	}
	if len(events) != 1 || events[0].State != Authenticated || events[0].Profile.Username != "asha" {
		t.Errorf("events = %+v, want one AUTHENTICATED event", events)
	}
}

func TestLoginIsAtomic(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", loginHandler)
	mux.HandleFunc("/api/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	store := credstore.NewMemoryStore()
	c := newController(t, mux, store)

	published := false
	c.Subscribe(func(Event) { published = true })

	_, err := c.Login(context.Background(), "asha", "secret")
	if !errors.Is(err, model.ErrUpstreamError) {
		t.Fatalf("Login error = %v, want ErrUpstreamError", err)
	}

	state, _ := store.Load()
	if state.Credentials != nil || state.Profile != nil {
		t.Errorf("nothing should be persisted, got %+v", state)
	}
	if c.State() != Anonymous {
		t.Errorf("State = %v, want ANONYMOUS", c.State())
	}
	if published {
		t.Error("failed login must not publish")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login/", loginHandler)

	c := newController(t, mux, credstore.NewMemoryStore())

	_, err := c.Login(context.Background(), "asha", "wrong")
	if !errors.Is(err, model.ErrInvalidRequest) {
		t.Fatalf("Login error = %v, want ErrInvalidRequest", err)
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Fields["credentials"] == nil {
		t.Errorf("Fields = %v, want credentials message", apiErr.Fields)
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("register must not carry credentials")
		}
		var req RegisterRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Username == "taken" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"username":["A user with that username already exists."]}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"user":{"id":9,"username":"` + req.Username + `","email":"` + req.Email + `"},"tokens":{"access":"a","refresh":"r"}}`))
	})

	store := credstore.NewMemoryStore()
	c := newController(t, mux, store)
	ctx := context.Background()

	_, err := c.Register(ctx, RegisterRequest{Username: "taken", Password: "x", Password2: "x"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || len(apiErr.Fields["username"]) != 1 {
		t.Fatalf("Register(taken) error = %v, want username field error", err)
	}

	profile, err := c.Register(ctx, RegisterRequest{Username: "ravi", Email: "ravi@example.com", Password: "pw", Password2: "pw"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if profile.ID != 9 || c.State() != Authenticated {
		t.Errorf("profile = %+v state = %v", profile, c.State())
	}
	if state, _ := store.Load(); !state.Active() {
		t.Error("registration should persist the session")
	}
}

func TestLogoutClearsAndPublishes(t *testing.T) {
	store := credstore.NewMemoryStore()
	store.Save(model.CredentialPair{Access: "a", Refresh: "r"}, model.UserProfile{Username: "asha"})

	c := newController(t, http.NewServeMux(), store)
	if c.State() != Authenticated {
		t.Fatalf("initial State = %v, want AUTHENTICATED from store", c.State())
	}

	var got []State
	cancel := c.Subscribe(func(ev Event) { got = append(got, ev.State) })

	if err := c.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if c.Profile() != nil {
		t.Error("Profile should be nil after logout")
	}
	if len(got) != 1 || got[0] != Anonymous {
		t.Errorf("events = %v, want [ANONYMOUS]", got)
	}

	cancel()
	c.Logout()
	if len(got) != 1 {
		t.Error("cancelled subscriber should not be notified")
	}
}

func TestFailedRefreshPublishesAnonymous(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/api/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	store := credstore.NewMemoryStore()
	store.Save(model.CredentialPair{Access: "a", Refresh: "r"}, model.UserProfile{Username: "asha"})
	c := newController(t, mux, store)

	var got []State
	c.Subscribe(func(ev Event) { got = append(got, ev.State) })

	_, err := c.UpdateProfile(context.Background(), ProfileUpdate{FirstName: "Asha"})
	if !errors.Is(err, model.ErrSessionExpired) {
		t.Fatalf("UpdateProfile error = %v, want ErrSessionExpired", err)
	}
	if c.State() != Anonymous {
		t.Errorf("State = %v, want ANONYMOUS", c.State())
	}
	if len(got) != 1 || got[0] != Anonymous {
		t.Errorf("events = %v, want [ANONYMOUS]", got)
	}
}

func TestUpdateProfileReplacesCache(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		var upd ProfileUpdate
		json.NewDecoder(r.Body).Decode(&upd)
		json.NewEncoder(w).Encode(model.UserProfile{Username: "asha", FirstName: upd.FirstName, LastName: upd.LastName})
	})

	store := credstore.NewMemoryStore()
	store.Save(model.CredentialPair{Access: "a", Refresh: "r"}, model.UserProfile{Username: "asha", Phone: "111"})
	c := newController(t, mux, store)

	if _, err := c.UpdateProfile(context.Background(), ProfileUpdate{FirstName: "Asha", LastName: "Rao"}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	p := c.Profile()
	if p.DisplayName() != "Asha Rao" {
		t.Errorf("DisplayName = %q, want Asha Rao", p.DisplayName())
	}
	if p.Phone != "" {
		t.Errorf("Phone = %q, want server copy (empty)", p.Phone)
	}
}

func TestStatusDecodesExpiry(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	store := credstore.NewMemoryStore()
	store.Save(model.CredentialPair{Access: token, Refresh: "r"}, model.UserProfile{Username: "asha"})
	c := newController(t, http.NewServeMux(), store)

	st, err := c.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != Authenticated || st.Username != "asha" || !st.CanRefresh {
		t.Errorf("Status = %+v", st)
	}
	if !st.AccessExpiresAt.Equal(exp) {
		t.Errorf("AccessExpiresAt = %v, want %v", st.AccessExpiresAt, exp)
	}

	c.Logout()
	st, _ = c.Status()
	if st.State != Anonymous {
		t.Errorf("State after logout = %v", st.State)
	}
}
