// Package session owns the ANONYMOUS/AUTHENTICATED state machine.
//
// It is the only writer of credentials outside the refresh branch of the
// request pipeline, and it publishes every state change to subscribers.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/api"
	"storefront/internal/credstore"
	"storefront/internal/model"
)

const (
	pathRegister = "/auth/register/"
	pathLogin    = "/auth/login/"
	pathProfile  = "/auth/profile/"
)

// State is the session state.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "AUTHENTICATED"
	}
	return "ANONYMOUS"
}

// Event is published on every transition and profile change.
type Event struct {
	State   State
	Profile *model.UserProfile
}

// RegisterRequest is the account sign-up form.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ProfileUpdate holds the editable profile fields.
type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerResponse struct {
	User   model.UserProfile    `json:"user"`
	Tokens model.CredentialPair `json:"tokens"`
}

// Controller drives login, registration, logout and profile updates.
type Controller struct {
	client *api.Client
	store  credstore.Store
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	listeners map[int]func(Event)
	nextID    int
}

// New derives the initial state from the credential store and registers the
// controller as the pipeline's session-expired hook.
func New(client *api.Client, logger *slog.Logger) (*Controller, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Controller{
		client:    client,
		store:     client.Store(),
		logger:    logger,
		listeners: make(map[int]func(Event)),
	}

	state, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if state.Active() {
		c.state = Authenticated
	}

	client.OnSessionExpired(c.Expire)
	return c, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Profile returns the cached profile, or nil when anonymous.
func (c *Controller) Profile() *model.UserProfile {
	state, err := c.store.Load()
	if err != nil || !state.Active() {
		return nil
	}
	return state.Profile
}

// Subscribe registers fn for state events. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(Event)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Register creates an account and signs it in.
func (c *Controller) Register(ctx context.Context, req RegisterRequest) (*model.UserProfile, error) {
	var resp registerResponse
	err := c.client.Do(ctx, &api.Request{
		Method: http.MethodPost,
		Path:   pathRegister,
		Body:   req,
		Public: true,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("registering: %w", err)
	}
	if resp.Tokens.Access == "" {
		return nil, fmt.Errorf("registering: %w", model.NewServerError(http.StatusOK, "registration response missing tokens"))
	}

	if err := c.store.Save(resp.Tokens, resp.User); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	c.logger.Info("registered", slog.String("username", resp.User.Username))
	c.publish(Authenticated, &resp.User)
	return &resp.User, nil
}

// Login exchanges credentials for a token pair, then fetches the profile with
// that pair. Nothing is persisted unless both calls succeed.
func (c *Controller) Login(ctx context.Context, username, password string) (*model.UserProfile, error) {
	var pair model.CredentialPair
	err := c.client.Do(ctx, &api.Request{
		Method: http.MethodPost,
		Path:   pathLogin,
		Body:   loginRequest{Username: username, Password: password},
		Public: true,
	}, &pair)
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", rejectedCredentials(err))
	}
	if pair.Access == "" {
		return nil, fmt.Errorf("logging in: %w", model.NewServerError(http.StatusOK, "login response missing access token"))
	}

	var profile model.UserProfile
	err = c.client.Do(ctx, &api.Request{
		Method:      http.MethodGet,
		Path:        pathProfile,
		Credentials: &pair,
	}, &profile)
	if err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}

	if err := c.store.Save(pair, profile); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	c.logger.Info("logged in", slog.String("username", profile.Username))
	c.publish(Authenticated, &profile)
	return &profile, nil
}

// Logout discards the session locally. The server is not contacted.
func (c *Controller) Logout() error {
	err := c.store.Clear()
	c.publish(Anonymous, nil)
	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Expire is invoked by the pipeline after it has already cleared the store.
func (c *Controller) Expire() {
	c.logger.Warn("session expired")
	c.publish(Anonymous, nil)
}

// UpdateProfile replaces the cached profile with the server's copy.
func (c *Controller) UpdateProfile(ctx context.Context, update ProfileUpdate) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := c.client.Do(ctx, &api.Request{
		Method: http.MethodPut,
		Path:   pathProfile,
		Body:   update,
	}, &profile)
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	if err := c.store.SetProfile(profile); err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}
	c.publish(Authenticated, &profile)
	return &profile, nil
}

// Status summarizes the session for display.
type Status struct {
	State           State
	Username        string
	AccessExpiresAt time.Time // zero when unknown
	CanRefresh      bool
}

// Status reads the stored session. The access token's expiry is decoded
// without verifying its signature; it is informational only.
func (c *Controller) Status() (Status, error) {
	state, err := c.store.Load()
	if err != nil {
		return Status{}, fmt.Errorf("loading session: %w", err)
	}
	if !state.Active() {
		return Status{State: Anonymous}, nil
	}

	st := Status{
		State:      Authenticated,
		Username:   state.Profile.Username,
		CanRefresh: state.Credentials.Refresh != "",
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(state.Credentials.Access, &claims); err == nil && claims.ExpiresAt != nil {
		st.AccessExpiresAt = claims.ExpiresAt.Time
	}
	return st, nil
}

func (c *Controller) publish(state State, profile *model.UserProfile) {
	c.mu.Lock()
	c.state = state
	listeners := make([]func(Event), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	ev := Event{State: state, Profile: profile}
	for _, fn := range listeners {
		fn(ev)
	}
}

// rejectedCredentials turns the 401 a login endpoint returns for a wrong
// password into a validation error; it is not an expired session.
func rejectedCredentials(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && errors.Is(err, model.ErrAuthExpired) {
		return model.NewValidationError("credentials", apiErr.Message)
	}
	return err
}
