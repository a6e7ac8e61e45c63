package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	httpdto "github.com/pricewatch-io/pricewatch/app/dto/http"
	"github.com/pricewatch-io/pricewatch/app/middleware"
	"github.com/pricewatch-io/pricewatch/app/service"
)

// ConfirmController serves the emailed confirmation links. URLs must keep the
// exact segment layout the mails embed: /<base64-uid>/<token-or-sentinel>
// plus, for email changes, /<base64-candidate-email>.
type ConfirmController struct {
	confirmations *service.ConfirmationService
}

func NewConfirmController(confirmations *service.ConfirmationService) *ConfirmController {
	return &ConfirmController{confirmations: confirmations}
}

const invalidLinkMessage = "confirmation link is invalid or expired"

func sessionID(ctx echo.Context) (string, bool) {
	sid, ok := ctx.Get(middleware.SessionContextKey).(string)
	return sid, ok && sid != ""
}

// requireParams guards against wiring mistakes: a confirm route registered
// without its path parameters is a configuration error, not user input.
func requireParams(ctx echo.Context, names ...string) bool {
	for _, name := range names {
		if ctx.Param(name) == "" {
			logrus.WithFields(logrus.Fields{
				"path":  ctx.Path(),
				"param": name,
			}).Error("Confirmation route missing required path parameter")
			return false
		}
	}
	return true
}

func (c *ConfirmController) RegisterConfirm(ctx echo.Context) error {
	if !requireParams(ctx, "uid", "token") {
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}
	sid, ok := sessionID(ctx)
	if !ok {
		logrus.Error("Confirmation route served without session middleware")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	redirect, err := c.confirmations.ConfirmActivation(
		ctx.Request().Context(),
		sid,
		ctx.Param("uid"),
		ctx.Param("token"),
		ctx.Request().URL.Path,
	)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLink) {
			logrus.Debug("Activation link rejected")
			return ctx.JSON(http.StatusOK, httpdto.ConfirmResponse{Valid: false, Message: invalidLinkMessage})
		}
		logrus.WithError(err).Error("Activation confirmation failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	if redirect != "" {
		return ctx.Redirect(http.StatusFound, redirect)
	}

	logrus.Info("Account activated")
	return ctx.JSON(http.StatusOK, httpdto.ConfirmResponse{Valid: true, Message: "account activated, you can now log in"})
}

func (c *ConfirmController) EmailChangeConfirm(ctx echo.Context) error {
	if !requireParams(ctx, "uid", "token", "email") {
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}
	sid, ok := sessionID(ctx)
	if !ok {
		logrus.Error("Confirmation route served without session middleware")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	redirect, err := c.confirmations.ConfirmEmailChange(
		ctx.Request().Context(),
		sid,
		ctx.Param("uid"),
		ctx.Param("token"),
		ctx.Param("email"),
		ctx.Request().URL.Path,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidLink):
			logrus.Debug("Email change link rejected")
			return ctx.JSON(http.StatusOK, httpdto.ConfirmResponse{Valid: false, Message: invalidLinkMessage})
		case errors.Is(err, service.ErrEmailUnchanged):
			logrus.Warn("Email change finalize rejected: unchanged address")
			return ctx.JSON(http.StatusOK, httpdto.ConfirmResponse{Valid: false, Message: "new email is the same as your current email"})
		case errors.Is(err, service.ErrEmailTaken):
			logrus.Warn("Email change finalize rejected: address taken")
			return ctx.JSON(http.StatusOK, httpdto.ConfirmResponse{Valid: false, Message: "email is already in use"})
		default:
			logrus.WithError(err).Error("Email change confirmation failed")
			return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
		}
	}

	if redirect != "" {
		return ctx.Redirect(http.StatusFound, redirect)
	}

	logrus.Info("Email address updated")
	return ctx.JSON(http.StatusOK, httpdto.ConfirmResponse{Valid: true, Message: "email address updated"})
}

func (c *ConfirmController) PasswordResetConfirm(ctx echo.Context) error {
	if !requireParams(ctx, "uid", "token") {
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}
	sid, ok := sessionID(ctx)
	if !ok {
		logrus.Error("Confirmation route served without session middleware")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	redirect, err := c.confirmations.BeginPasswordReset(
		ctx.Request().Context(),
		sid,
		ctx.Param("uid"),
		ctx.Param("token"),
		ctx.Request().URL.Path,
	)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLink) {
			logrus.Debug("Password reset link rejected")
			return ctx.JSON(http.StatusOK, httpdto.ConfirmResponse{Valid: false, Message: invalidLinkMessage})
		}
		logrus.WithError(err).Error("Password reset confirmation failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	if redirect != "" {
		return ctx.Redirect(http.StatusFound, redirect)
	}

	return ctx.JSON(http.StatusOK, httpdto.ConfirmResponse{Valid: true, Message: "set a new password"})
}

func (c *ConfirmController) PasswordResetComplete(ctx echo.Context) error {
	if !requireParams(ctx, "uid", "token") {
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}
	sid, ok := sessionID(ctx)
	if !ok {
		logrus.Error("Confirmation route served without session middleware")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	var req httpdto.SetPasswordRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind set password request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}
	if req.NewPassword == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "new_password is required"})
	}

	err := c.confirmations.CompletePasswordReset(ctx.Request().Context(), sid, ctx.Param("uid"), req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLink) {
			logrus.Debug("Password reset completion rejected")
			return ctx.JSON(http.StatusOK, httpdto.ConfirmResponse{Valid: false, Message: invalidLinkMessage})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).Error("Password reset completion failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.Info("Password reset completed")
	return ctx.JSON(http.StatusOK, httpdto.ConfirmResponse{Valid: true, Message: "password updated, you can now log in"})
}
