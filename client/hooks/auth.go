package hooks

import (
	"context"
	"net/http"

	"github.com/trezcool/shule/client/apiclient"
	"github.com/trezcool/shule/client/forms"
	"github.com/trezcool/shule/core/user"
)

// AuthToken is returned by login & token refresh.
type AuthToken struct {
	apiclient.Session
	User user.User `json:"user"`
}

// Login signs in and starts from an empty cache.
func (h *Hooks) Login(ctx context.Context, form forms.Login) (AuthToken, error) {
	tok, err := mutate[AuthToken](ctx, h, http.MethodPost, "auth/login", &form)
	if err != nil {
		return AuthToken{}, err
	}
	h.cache.Clear()
	h.api.SignIn(tok.Session)
	return tok, nil
}

// RefreshToken swaps the current token for a fresh one.
func (h *Hooks) RefreshToken(ctx context.Context) (AuthToken, error) {
	tok, err := mutate[AuthToken](ctx, h, http.MethodPost, "auth/token-refresh", nil)
	if err != nil {
		return AuthToken{}, err
	}
	h.api.SignIn(tok.Session)
	return tok, nil
}

func (h *Hooks) Logout() {
	h.api.Session().Clear()
	h.cache.Clear()
}

func (h *Hooks) RequestPasswordReset(ctx context.Context, form forms.PasswordResetRequest) error {
	_, err := mutate[struct{}](ctx, h, http.MethodPost, "auth/password-reset", &form)
	return err
}

func (h *Hooks) ConfirmPasswordReset(ctx context.Context, form user.ResetUserPassword) error {
	_, err := mutate[struct{}](ctx, h, http.MethodPost, "auth/password-reset-confirm", &form)
	return err
}

// ChangePassword sets the password of the signed in user.
func (h *Hooks) ChangePassword(ctx context.Context, form forms.ChangePassword) error {
	_, err := mutate[struct{}](ctx, h, http.MethodPut, "auth/password", &form)
	return err
}
