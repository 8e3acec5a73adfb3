package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fawrybook/auth-service/internal/logging"
	"github.com/fawrybook/auth-service/internal/middleware"
	"github.com/fawrybook/auth-service/internal/repo"
	"github.com/fawrybook/auth-service/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	token, err := h.Svc.Register(ctx, req.Username, req.Password, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, repo.ErrUsernameTaken), errors.Is(err, repo.ErrPhoneTaken):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"username": req.Username,
		"phone":    req.Phone,
		"token":    token,
	})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	token, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrInvalidCredentials):
			// Same body for unknown user and wrong password.
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":    token,
		"username": req.Username,
	})
}

// LogOut sits outside the gate so an already-revoked token surfaces as
// 400 instead of the gate's 401.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()

	token, ok := middleware.BearerToken(c.Request())
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid token format")
	}

	res, err := h.Svc.Logout(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrMalformedToken) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid token format")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if res == repo.AlreadyRevoked {
		return echo.NewHTTPError(http.StatusBadRequest, "token already revoked")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "successfully logged out",
	})
}

// CheckToken runs behind the gate; reaching the handler means the token
// is well-signed, unexpired and not revoked.
func (h *AuthHTTP) CheckToken(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"valid": true,
	})
}

func (h *AuthHTTP) CheckUser(c echo.Context) error {
	userID, ok := c.Get(middleware.CtxUserID).(uint)
	if !ok || userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"userId": userID,
	})
}
