/* api.go
 * This file contains the public surface for interacting with the arena backend. It ties one
 * credential store and HTTP client to the per-area services so a caller holds a single value
 * per logged-in user
 * Authors: Zachary Bower
 */

package api

import (
	"context"
	"fmt"

	"arena-bot/api/admin"
	"arena-bot/api/auth"
	"arena-bot/api/battle"
	"arena-bot/api/client"
	"arena-bot/api/creds"
	"arena-bot/api/practice"
	"arena-bot/api/shared"
	"arena-bot/api/support"
)

// API aggregates the arena services over a single client and credential store
type API struct {
	Client   *client.Client
	Creds    creds.Store
	Auth     *auth.Service
	Battle   *battle.Service
	Practice *practice.Service
	Support  *support.Service
	Admin    *admin.Service
}

// NewAPI creates a new API instance against the given base URL. The credential store
// carries the token pair; a fresh MemoryStore gives an anonymous session
func NewAPI(baseURL string, store creds.Store) (*API, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	if store == nil {
		store = creds.NewMemoryStore()
	}

	c := client.New(baseURL, store)
	return &API{
		Client:   c,
		Creds:    store,
		Auth:     auth.NewService(c, store),
		Battle:   battle.NewService(c),
		Practice: practice.NewService(c),
		Support:  support.NewService(c),
		Admin:    admin.NewService(c),
	}, nil
}

// NewLifecycle creates a battle lifecycle bound to this API's battle service
func (a *API) NewLifecycle() *battle.Lifecycle {
	return battle.NewLifecycle(a.Battle, battle.DefaultIntervals())
}

// Resume seeds the credential store from a stored refresh token. The first
// authenticated request 401s, triggers a refresh with this token and mints a
// fresh pair, so no explicit login round trip is needed
func (a *API) Resume(refreshToken string) error {
	return a.Creds.SetTokens("", refreshToken)
}

// LoggedIn reports whether the session holds any credentials
func (a *API) LoggedIn() bool {
	access, refresh := a.Creds.Tokens()
	return access != "" || refresh != ""
}

// Me returns the authenticated user's profile
func (a *API) Me(ctx context.Context) (shared.User, error) {
	return a.Auth.Me(ctx)
}
