package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	httpdto "github.com/pricewatch-io/pricewatch/app/dto/http"
	"github.com/pricewatch-io/pricewatch/app/service"
)

type AccountController struct {
	accounts      *service.AccountService
	confirmations *service.ConfirmationService
}

func NewAccountController(accounts *service.AccountService, confirmations *service.ConfirmationService) *AccountController {
	return &AccountController{
		accounts:      accounts,
		confirmations: confirmations,
	}
}

func siteFromContext(ctx echo.Context) service.Site {
	return service.Site{
		Scheme: ctx.Scheme(),
		Host:   ctx.Request().Host,
	}
}

func (c *AccountController) Register(ctx echo.Context) error {
	var req httpdto.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind register request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "username, email and password are required"})
	}

	logrus.WithField("username", req.Username).Info("Register request received")
	user, err := c.accounts.Register(ctx.Request().Context(), service.RegisterInput{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			logrus.WithField("username", req.Username).Warn("Register failed: user already exists")
			return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: "user already exists"})
		}
		if errors.Is(err, service.ErrWeakPassword) || errors.Is(err, service.ErrInvalidEmail) {
			logrus.WithField("username", req.Username).Warn("Register failed: invalid input")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("username", req.Username).Error("Register failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	message := "registration successful, check your email to activate your account"
	if err := c.confirmations.SendActivationEmail(ctx.Request().Context(), user, siteFromContext(ctx)); err != nil {
		// Delivery failure does not roll back the registration; the link can
		// be re-requested.
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Activation email not delivered")
		message = "registration successful, but the confirmation email could not be delivered; request a new one"
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")

	return ctx.JSON(http.StatusCreated, httpdto.RegisterResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Message:  message,
	})
}

func (c *AccountController) Login(ctx echo.Context) error {
	var req httpdto.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "username and password are required"})
	}

	logrus.WithField("username", req.Username).Info("Login request received")
	accessToken, _, err := c.accounts.Login(ctx.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("username", req.Username).Warn("Login failed: invalid credentials")
			return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "invalid credentials"})
		}
		if errors.Is(err, service.ErrAccountInactive) {
			logrus.WithField("username", req.Username).Warn("Login failed: account not activated")
			return ctx.JSON(http.StatusForbidden, httpdto.ErrorResponse{Error: "account is not active"})
		}
		logrus.WithError(err).WithField("username", req.Username).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("username", req.Username).Info("Login successful")
	return ctx.JSON(http.StatusOK, httpdto.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(c.accounts.AccessTokenTTL().Seconds()),
	})
}

func (c *AccountController) ResendActivation(ctx echo.Context) error {
	var req httpdto.ResendActivationRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind resend activation request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Email) == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "email is required"})
	}

	logrus.Info("Activation resend requested")
	err := c.confirmations.ResendActivation(ctx.Request().Context(), req.Email, siteFromContext(ctx))
	if err != nil {
		if errors.Is(err, service.ErrMailDelivery) {
			logrus.WithError(err).Warn("Activation email not delivered")
			return ctx.JSON(http.StatusOK, httpdto.MessageResponse{
				Message: "the confirmation email could not be delivered; try again later",
			})
		}
		logrus.WithError(err).Error("Activation resend failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	// Unknown addresses get the same answer as known ones.
	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{
		Message: "if the address is registered, an activation email has been sent",
	})
}

func (c *AccountController) RequestPasswordReset(ctx echo.Context) error {
	var req httpdto.PasswordResetRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind password reset request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Email) == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "email is required"})
	}

	logrus.Info("Password reset requested")
	err := c.confirmations.RequestPasswordReset(ctx.Request().Context(), req.Email, siteFromContext(ctx))
	if err != nil && !errors.Is(err, service.ErrMailDelivery) {
		logrus.WithError(err).Error("Password reset request failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}
	if errors.Is(err, service.ErrMailDelivery) {
		logrus.WithError(err).Warn("Password reset email not delivered")
	}

	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{
		Message: "if the address is registered, a reset email has been sent",
	})
}

func (c *AccountController) RequestEmailChange(ctx echo.Context) error {
	var req httpdto.EmailChangeRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind email change request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.NewEmail) == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "new_email is required"})
	}

	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Email change failed: missing user_id in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	user, err := c.accounts.GetProfile(ctx.Request().Context(), userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Email change failed: user lookup")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", userID).Info("Email change requested")
	err = c.confirmations.RequestEmailChange(ctx.Request().Context(), user, req.NewEmail, siteFromContext(ctx))
	if err != nil {
		if errors.Is(err, service.ErrEmailUnchanged) {
			logrus.WithField("user_id", userID).Warn("Email change rejected: unchanged address")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "new email is the same as your current email"})
		}
		if errors.Is(err, service.ErrEmailTaken) {
			logrus.WithField("user_id", userID).Warn("Email change rejected: address taken")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "email is already in use"})
		}
		if errors.Is(err, service.ErrMailDelivery) {
			logrus.WithError(err).WithField("user_id", userID).Warn("Email change confirmation not delivered")
			return ctx.JSON(http.StatusOK, httpdto.MessageResponse{
				Message: "the confirmation email could not be delivered; try again later",
			})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Email change request failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{
		Message: "check your new email address to confirm the change",
	})
}

func (c *AccountController) ChangePassword(ctx echo.Context) error {
	var req httpdto.ChangePasswordRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind change password request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "old_password and new_password are required"})
	}

	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Change password failed: missing user_id in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	logrus.WithField("user_id", userID).Info("Change password request received")
	err := c.accounts.ChangePassword(ctx.Request().Context(), userID, req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			logrus.WithField("user_id", userID).Warn("Change password failed: user not found")
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "user not found"})
		}
		if errors.Is(err, service.ErrPasswordMismatch) {
			logrus.WithField("user_id", userID).Warn("Change password failed: old password mismatch")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "old password is incorrect"})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			logrus.WithField("user_id", userID).Warn("Change password failed: weak password")
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Change password failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", userID).Info("Password changed")
	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: "password changed successfully"})
}

func (c *AccountController) GetProfile(ctx echo.Context) error {
	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Get profile failed: missing user_id in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	user, err := c.accounts.GetProfile(ctx.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Get profile failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, httpdto.ProfileResponse{
		UserID:    user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		IsActive:  user.IsActive,
	})
}

func (c *AccountController) UpdateProfile(ctx echo.Context) error {
	var req httpdto.ProfileUpdateRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind profile update request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}

	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		logrus.Warn("Update profile failed: missing user_id in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Error: "unauthorized"})
	}

	user, err := c.accounts.UpdateProfile(ctx.Request().Context(), userID, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "user not found"})
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Update profile failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("user_id", userID).Info("Profile updated")
	return ctx.JSON(http.StatusOK, httpdto.ProfileResponse{
		UserID:    user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		IsActive:  user.IsActive,
	})
}
