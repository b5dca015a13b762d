package authclient

import (
	"context"
)

// Command messages for the explicit auth flows. Message and handler shapes
// follow the go-command conventions (Type() on messages, Execute on
// handlers) so hosts running a command bus can register them directly.

type LoginMessage struct{}

func (m LoginMessage) Type() string { return "auth.login" }

type LoginHandler struct {
	Manager *Manager
}

func (h *LoginHandler) Execute(ctx context.Context, msg LoginMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.Manager.Login(ctx)
	}
}

type CallbackMessage struct {
	Code string `json:"code"`
}

func (m CallbackMessage) Type() string { return "auth.callback" }

type CallbackHandler struct {
	Manager *Manager
}

func (h *CallbackHandler) Execute(ctx context.Context, msg CallbackMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.Manager.HandleCallback(ctx, msg.Code)
	}
}

type PasswordLoginMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (m PasswordLoginMessage) Type() string { return "auth.login.password" }

type PasswordLoginHandler struct {
	Manager *Manager
}

func (h *PasswordLoginHandler) Execute(ctx context.Context, msg PasswordLoginMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.Manager.LoginWithPassword(ctx, msg.Email, msg.Password)
	}
}

type SignOutMessage struct{}

func (m SignOutMessage) Type() string { return "auth.signout" }

type SignOutHandler struct {
	Manager *Manager
}

func (h *SignOutHandler) Execute(ctx context.Context, msg SignOutMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		h.Manager.SignOut(ctx)
		return nil
	}
}
