package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"storefront/internal/model"
)

// attempt is the retry state of one logical call. It is a value: the replay
// after a refresh gets a new attempt from next(), never a mutated flag.
type attempt struct {
	n      int
	access string // token obtained by the refresh that produced this attempt
}

var firstAttempt = attempt{}

func (a attempt) next(access string) attempt {
	return attempt{n: a.n + 1, access: access}
}

// mayRefresh reports whether a 401 on this attempt enters the refresh branch.
// Public and explicitly-credentialed requests never do.
func (a attempt) mayRefresh(req *Request) bool {
	return a.n == 0 && !req.Public && req.Credentials == nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

// refresh obtains a new access token. Concurrent callers holding the same
// refresh token share a single refresh call.
func (c *Client) refresh(ctx context.Context) (string, error) {
	state, err := c.store.Load()
	if err != nil {
		c.teardown("credential store unreadable")
		return "", model.NewSessionExpiredError(err)
	}
	if state.Credentials == nil || state.Credentials.Refresh == "" {
		c.teardown("no refresh token")
		return "", model.NewSessionExpiredError(nil)
	}
	refreshToken := state.Credentials.Refresh

	// The shared call must not be cancelled by whichever caller happened to start it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.refreshGroup.Do(refreshToken, func() (any, error) {
		return c.exchangeRefresh(shared, refreshToken)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) exchangeRefresh(ctx context.Context, refreshToken string) (string, error) {
	c.logger.Info("access token rejected, refreshing")

	resp, err := c.dispatch(ctx, &Request{
		Method: http.MethodPost,
		Path:   pathTokenRefresh,
		Body:   refreshRequest{Refresh: refreshToken},
		Public: true,
	}, "")
	if err != nil {
		c.teardown("refresh call failed")
		return "", model.NewSessionExpiredError(err)
	}
	if !resp.OK() {
		c.teardown("refresh rejected")
		return "", model.NewSessionExpiredError(fmt.Errorf("refresh returned status %d", resp.StatusCode))
	}

	var out refreshResponse
	if err := decodeJSON(resp.Body, &out); err != nil || out.Access == "" {
		if err == nil {
			err = errors.New("refresh response missing access token")
		}
		c.teardown("refresh response unusable")
		return "", model.NewSessionExpiredError(err)
	}

	if err := c.store.SetAccess(out.Access); err != nil {
		c.teardown("storing refreshed token failed")
		return "", model.NewSessionExpiredError(err)
	}

	c.logger.Info("access token refreshed")
	return out.Access, nil
}

// teardown clears the credential store and notifies the session controller.
func (c *Client) teardown(reason string) {
	c.logger.Warn("session torn down", slog.String("reason", reason))

	if err := c.store.Clear(); err != nil {
		c.logger.Error("clearing credentials", slog.String("error", err.Error()))
	}

	c.hookMu.RLock()
	hook := c.onSessionExpired
	c.hookMu.RUnlock()
	if hook != nil {
		hook()
	}
}
