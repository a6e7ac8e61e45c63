package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pricewatch-io/pricewatch/app/entity"
	"github.com/pricewatch-io/pricewatch/app/mail"
	"github.com/pricewatch-io/pricewatch/app/repository"
	"github.com/pricewatch-io/pricewatch/config"
)

var (
	// ErrInvalidLink covers every way a confirmation link can fail: bad
	// identity reference, expired or forged token, missing session marker.
	// They are deliberately indistinguishable to the visitor.
	ErrInvalidLink    = errors.New("confirmation link is invalid or expired")
	ErrEmailUnchanged = errors.New("new email is the same as the current email")
	ErrEmailTaken     = errors.New("email is already in use by an active account")
	ErrMailDelivery   = errors.New("could not deliver email")
)

// Sentinel path segments substituted for the raw token after its first
// successful validation. Emailed links must keep producing these exact values.
const (
	SentinelActivation    = "activation"
	SentinelEmailChange   = "email-validation"
	SentinelPasswordReset = "set-password"
)

// sessionMarkerKey is the fixed session entry holding the redeemed-once raw
// token. At most one marker exists per client session.
const sessionMarkerKey = "_account_activation_token"

// Site identifies the host a confirmation link should point back at, taken
// from the issuing request.
type Site struct {
	Scheme string
	Host   string
}

type confirmUserRepository interface {
	FindByEncodedID(ctx context.Context, encoded string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsActiveWithEmail(ctx context.Context, email string, excludingID uint64) (bool, error)
	Update(ctx context.Context, user *entity.User) error
}

type sessionStore interface {
	Set(ctx context.Context, sessionID, key, value string, ttl time.Duration) error
	Get(ctx context.Context, sessionID, key string) (string, error)
	GetDel(ctx context.Context, sessionID, key string) (string, error)
}

type tokenGenerator interface {
	Mint(user *entity.User) (string, error)
	Check(user *entity.User, tok string) bool
}

// ConfirmationService drives the three-step confirmation flow: link visited
// with a raw token, token swapped for a one-time session marker behind a
// redirect, marker consumed to finalize the mutation.
type ConfirmationService struct {
	users    confirmUserRepository
	sessions sessionStore
	tokens   tokenGenerator
	sender   mail.Sender
	cfg      *config.Config
}

func NewConfirmationService(
	users confirmUserRepository,
	sessions sessionStore,
	tokens tokenGenerator,
	sender mail.Sender,
	cfg *config.Config,
) *ConfirmationService {
	return &ConfirmationService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		sender:   sender,
		cfg:      cfg,
	}
}

// SendActivationEmail mints a fresh token for the user and mails the
// activation link. A delivery failure is reported as ErrMailDelivery; the
// token stays redeemable regardless.
func (s *ConfirmationService) SendActivationEmail(ctx context.Context, user *entity.User, site Site) error {
	tok, err := s.tokens.Mint(user)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s://%s/accounts/register_confirm/%s/%s",
		site.Scheme, site.Host, repository.EncodeUserID(user.ID), tok)

	subject, body, err := mail.RenderActivation(mail.LinkEmailData{
		Username: user.DisplayName(),
		Domain:   site.Host,
		Link:     link,
	})
	if err != nil {
		return err
	}

	if err := s.sender.Send(subject, body, []string{user.Email}); err != nil {
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

// ResendActivation re-issues an activation link for the given address. An
// unknown or already-active address succeeds silently so the endpoint cannot
// be used to probe which emails are registered.
func (s *ConfirmationService) ResendActivation(ctx context.Context, email string, site Site) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil || user.IsActive {
		return nil
	}
	return s.SendActivationEmail(ctx, user, site)
}

// RequestEmailChange validates the candidate address eagerly (the caller is
// authenticated, so there is nothing to hide) and mails a confirmation link
// carrying the candidate base64-encoded in the path.
func (s *ConfirmationService) RequestEmailChange(ctx context.Context, user *entity.User, newEmail string, site Site) error {
	if newEmail == user.Email {
		return ErrEmailUnchanged
	}
	taken, err := s.users.ExistsActiveWithEmail(ctx, newEmail, user.ID)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}

	tok, err := s.tokens.Mint(user)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s://%s/accounts/email_change_confirm/%s/%s/%s",
		site.Scheme, site.Host, repository.EncodeUserID(user.ID), tok,
		base64.URLEncoding.EncodeToString([]byte(newEmail)))

	subject, body, err := mail.RenderEmailChange(mail.LinkEmailData{
		Username: user.DisplayName(),
		Domain:   site.Host,
		Link:     link,
		NewEmail: newEmail,
	})
	if err != nil {
		return err
	}

	if err := s.sender.Send(subject, body, []string{newEmail}); err != nil {
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

// RequestPasswordReset mails a reset link. Unknown addresses succeed silently,
// same as activation resend.
func (s *ConfirmationService) RequestPasswordReset(ctx context.Context, email string, site Site) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	tok, err := s.tokens.Mint(user)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s://%s/accounts/password_reset_confirm/%s/%s",
		site.Scheme, site.Host, repository.EncodeUserID(user.ID), tok)

	subject, body, err := mail.RenderPasswordReset(mail.LinkEmailData{
		Username: user.DisplayName(),
		Domain:   site.Host,
		Link:     link,
	})
	if err != nil {
		return err
	}

	if err := s.sender.Send(subject, body, []string{user.Email}); err != nil {
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

// ConfirmActivation handles one visit to an activation link. A non-empty
// redirect means the raw token was just swapped for a session marker and the
// client should be sent to the sentinel URL. An empty redirect with nil error
// means the account was activated.
func (s *ConfirmationService) ConfirmActivation(ctx context.Context, sessionID, encodedUID, tokenSegment, path string) (string, error) {
	user, err := s.users.FindByEncodedID(ctx, encodedUID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidLink
	}

	if tokenSegment != SentinelActivation {
		return s.swapTokenForMarker(ctx, sessionID, user, tokenSegment, path, SentinelActivation)
	}

	if err := s.consumeMarker(ctx, sessionID, user); err != nil {
		return "", err
	}

	user.IsActive = true
	if err := s.users.Update(ctx, user); err != nil {
		return "", err
	}
	return "", nil
}

// ConfirmEmailChange handles one visit to an email-change link. The candidate
// address travels base64-encoded in the URL, not in server-side state, and is
// re-validated at finalize time in case it was taken since issuance.
func (s *ConfirmationService) ConfirmEmailChange(ctx context.Context, sessionID, encodedUID, tokenSegment, encodedEmail, path string) (string, error) {
	user, err := s.users.FindByEncodedID(ctx, encodedUID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidLink
	}

	newEmailRaw, decErr := base64.URLEncoding.DecodeString(encodedEmail)
	if decErr != nil {
		return "", ErrInvalidLink
	}
	newEmail := string(newEmailRaw)

	if tokenSegment != SentinelEmailChange {
		return s.swapTokenForMarker(ctx, sessionID, user, tokenSegment, path, SentinelEmailChange)
	}

	if err := s.consumeMarker(ctx, sessionID, user); err != nil {
		return "", err
	}

	if newEmail == user.Email {
		return "", ErrEmailUnchanged
	}
	taken, err := s.users.ExistsActiveWithEmail(ctx, newEmail, user.ID)
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrEmailTaken
	}

	user.Email = newEmail
	if err := s.users.Update(ctx, user); err != nil {
		return "", err
	}
	return "", nil
}

// BeginPasswordReset handles the GET side of a reset link: swap the raw token
// for a marker, or verify that a marker is present without consuming it so the
// set-password form can be shown more than once before submission.
func (s *ConfirmationService) BeginPasswordReset(ctx context.Context, sessionID, encodedUID, tokenSegment, path string) (string, error) {
	user, err := s.users.FindByEncodedID(ctx, encodedUID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidLink
	}

	if tokenSegment != SentinelPasswordReset {
		return s.swapTokenForMarker(ctx, sessionID, user, tokenSegment, path, SentinelPasswordReset)
	}

	marker, err := s.sessions.Get(ctx, sessionID, sessionMarkerKey)
	if err != nil {
		return "", err
	}
	if marker == "" || !s.tokens.Check(user, marker) {
		return "", ErrInvalidLink
	}
	return "", nil
}

// CompletePasswordReset consumes the marker and commits the new password. The
// password change also rotates the state fingerprint, revoking any other
// outstanding links for the user.
func (s *ConfirmationService) CompletePasswordReset(ctx context.Context, sessionID, encodedUID, newPassword string) error {
	user, err := s.users.FindByEncodedID(ctx, encodedUID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidLink
	}

	if err := s.consumeMarker(ctx, sessionID, user); err != nil {
		return err
	}

	if err := s.cfg.PasswordPolicy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user.PasswordHash = string(hashedPassword)
	return s.users.Update(ctx, user)
}

// swapTokenForMarker is the LinkVisited -> MarkerStored transition: validate
// the literal token, stash it as the session marker, and rewrite the visited
// path with the sentinel so the raw token never reaches referrer logs.
func (s *ConfirmationService) swapTokenForMarker(ctx context.Context, sessionID string, user *entity.User, tokenSegment, path, sentinel string) (string, error) {
	if !s.tokens.Check(user, tokenSegment) {
		return "", ErrInvalidLink
	}
	if err := s.sessions.Set(ctx, sessionID, sessionMarkerKey, tokenSegment, s.cfg.SessionMarkerTTL); err != nil {
		return "", err
	}
	return strings.Replace(path, tokenSegment, sentinel, 1), nil
}

// consumeMarker atomically pops the session marker and re-validates it. Of two
// racing finalize attempts exactly one wins the pop; the loser sees an absent
// marker and lands on ErrInvalidLink.
func (s *ConfirmationService) consumeMarker(ctx context.Context, sessionID string, user *entity.User) error {
	marker, err := s.sessions.GetDel(ctx, sessionID, sessionMarkerKey)
	if err != nil {
		return err
	}
	if marker == "" || !s.tokens.Check(user, marker) {
		return ErrInvalidLink
	}
	return nil
}
