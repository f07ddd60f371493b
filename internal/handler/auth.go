package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
)

// AuthHandler serves the login, logout and token endpoints.
type AuthHandler struct {
	Auth *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{Auth: svc}
}

// ----- DTOs -----

type loginReq struct {
	SchoolCode string `json:"school_code" validate:"notblank,max=32"`
	Username   string `json:"username" validate:"notblank,max=150"`
	Password   string `json:"password" validate:"required,max=128"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"notblank"`
}

type verifyReq struct {
	Token string `json:"token" validate:"notblank"`
}

type loginResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type accessResp struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type verifyResp struct {
	Type      string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login authenticates against a school and returns a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	pair, err := h.Auth.Login(ctx, auth.LoginRequest{
		SchoolCode: req.SchoolCode,
		Username:   req.Username,
		Password:   req.Password,
		ClientIP:   c.RealIP(),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResp{
		AccessToken:  pair.Access.Token,
		RefreshToken: pair.Refresh.Token,
	})
}

// Logout revokes the refresh token in the body. The bearer access token
// must belong to the same principal.
func (h *AuthHandler) Logout(c echo.Context) error {
	tc, err := auth.RequireTenant(c.Request().Context())
	if err != nil {
		return err
	}
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, tc, strings.TrimSpace(req.RefreshToken)); err != nil {
		if errors.Is(err, auth.ErrTokenInvalid) || errors.Is(err, auth.ErrTokenExpired) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid refresh token").SetInternal(err)
		}
		return err
	}
	return c.NoContent(http.StatusResetContent)
}

// Refresh returns a new access token. The refresh token is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	tok, err := h.Auth.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accessResp{AccessToken: tok.Token, ExpiresAt: tok.ExpiresAt})
}

// Verify checks a token of either type.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	claims, err := h.Auth.Tokens().Inspect(ctx, strings.TrimSpace(req.Token))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, verifyResp{Type: claims.Type, ExpiresAt: claims.ExpiresAt.Time})
}

// Me returns the tenant context of the caller.
func (h *AuthHandler) Me(c echo.Context) error {
	tc, err := auth.RequireTenant(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tc)
}
