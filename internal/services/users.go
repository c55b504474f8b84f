package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"finsmart/internal/core"
	"finsmart/internal/store"
)

// TokenIssuer mints an access token for a verified user. Implemented by the
// JWT manager in internal/auth.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// UserService handles registration, OTP verification, login, and account
// removal. Verification gates everything: an unverified user has no
// accounts, no categories, and cannot log in.
type UserService struct {
	users      store.UserStore
	store      store.Store
	ledger     *LedgerService
	categories *CategoryService
	tokens     TokenIssuer
	sender     OTPSender
	otpTTL     time.Duration
}

func NewUserService(s store.Store, ledger *LedgerService, categories *CategoryService, tokens TokenIssuer, sender OTPSender, otpTTL time.Duration) *UserService {
	if sender == nil {
		sender = LogOTPSender{}
	}
	if otpTTL <= 0 {
		otpTTL = 10 * time.Minute
	}
	return &UserService{
		users:      s,
		store:      s,
		ledger:     ledger,
		categories: categories,
		tokens:     tokens,
		sender:     sender,
		otpTTL:     otpTTL,
	}
}

// Register creates an unverified user and sends the verification code. The
// email is the login identity and must be unique.
func (s *UserService) Register(ctx context.Context, name, email, password string) (core.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return core.User{}, core.ErrInvalidArgument
	}
	if len(password) < 8 {
		return core.User{}, fmt.Errorf("%w: password must be at least 8 characters", core.ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	code, err := generateOTP()
	if err != nil {
		return core.User{}, err
	}

	u, err := s.users.CreateUser(ctx, core.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		OTP:          code,
		OTPExpiresAt: time.Now().UTC().Add(s.otpTTL),
	})
	if err != nil {
		return core.User{}, err
	}
	if err := s.sender.SendOTP(ctx, email, code); err != nil {
		slog.WarnContext(ctx, "Failed to send OTP", "email", email, "error", err)
	}
	slog.InfoContext(ctx, "User registered", "user_id", u.ID)
	return u, nil
}

// VerifyOTP checks the code, marks the user verified, seeds the default
// accounts and categories, and returns an access token. Seeding is
// idempotent, so retrying after a partial failure is safe.
func (s *UserService) VerifyOTP(ctx context.Context, email, code string) (core.User, string, error) {
	u, err := s.userForOTP(ctx, email, code)
	if err != nil {
		return core.User{}, "", err
	}

	u.IsVerified = true
	u.OTP = ""
	u.OTPExpiresAt = time.Time{}
	u, err = s.users.UpdateUser(ctx, u)
	if err != nil {
		return core.User{}, "", fmt.Errorf("mark verified: %w", err)
	}

	if _, err := s.ledger.InitDefaultAccounts(ctx, u.ID); err != nil {
		return core.User{}, "", fmt.Errorf("seed default accounts: %w", err)
	}
	if err := s.categories.SeedDefaults(ctx, u.ID); err != nil {
		return core.User{}, "", fmt.Errorf("seed default categories: %w", err)
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return core.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	slog.InfoContext(ctx, "User verified", "user_id", u.ID)
	return u, token, nil
}

// ResendOTP rotates the verification code for an unverified user.
func (s *UserService) ResendOTP(ctx context.Context, email string) error {
	u, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if u.IsVerified {
		return fmt.Errorf("%w: already verified", core.ErrInvalidArgument)
	}
	return s.rotateOTP(ctx, u)
}

// Login authenticates a verified user and returns an access token. Wrong
// password and unknown email both come back as ErrUnauthorized so the
// response doesn't leak which accounts exist.
func (s *UserService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	u, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, "", core.ErrUnauthorized
		}
		return core.User{}, "", err
	}
	if !u.IsVerified {
		return core.User{}, "", fmt.Errorf("%w: email not verified", core.ErrUnauthorized)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return core.User{}, "", core.ErrUnauthorized
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return core.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return u, token, nil
}

// ForgotPassword issues a reset code to a known email. Unknown emails are
// reported as not found by the store; the HTTP layer flattens that.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	return s.rotateOTP(ctx, u)
}

// ResetPassword redeems a reset code and installs the new password.
func (s *UserService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", core.ErrInvalidArgument)
	}
	u, err := s.userForOTP(ctx, email, code)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.OTP = ""
	u.OTPExpiresAt = time.Time{}
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("store new password: %w", err)
	}
	slog.InfoContext(ctx, "Password reset", "user_id", u.ID)
	return nil
}

// Profile returns the user record for the authenticated id.
func (s *UserService) Profile(ctx context.Context, userID string) (core.User, error) {
	return s.users.UserByID(ctx, userID)
}

// UpdateProfile changes the user's name and email. A new email must not
// belong to anyone else; the caller keeps their verified status, since the
// password still guards the account.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name, email string) (core.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return core.User{}, core.ErrInvalidArgument
	}
	u, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return core.User{}, err
	}
	if !strings.EqualFold(email, u.Email) {
		other, err := s.users.UserByEmail(ctx, email)
		if err == nil && other.ID != u.ID {
			return core.User{}, fmt.Errorf("%w: email already in use", core.ErrAlreadyExists)
		}
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return core.User{}, err
		}
	}
	u.Name = name
	u.Email = email
	u, err = s.users.UpdateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("store profile: %w", err)
	}
	slog.InfoContext(ctx, "Profile updated", "user_id", u.ID)
	return u, nil
}

// DeleteUser removes the user and everything they own. The transaction log
// goes first so no entry ever outlives its owner.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.users.UserByID(ctx, userID); err != nil {
		return err
	}
	if err := s.store.DeleteTransactionsByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	if err := s.store.DeleteCategoriesByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete categories: %w", err)
	}
	if err := s.store.DeleteAccountsByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete accounts: %w", err)
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	slog.InfoContext(ctx, "User deleted", "user_id", userID)
	return nil
}

func (s *UserService) userForOTP(ctx context.Context, email, code string) (core.User, error) {
	u, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return core.User{}, err
	}
	if u.OTP == "" || u.OTP != code {
		return core.User{}, fmt.Errorf("%w: invalid code", core.ErrUnauthorized)
	}
	if time.Now().UTC().After(u.OTPExpiresAt) {
		return core.User{}, fmt.Errorf("%w: code expired", core.ErrUnauthorized)
	}
	return u, nil
}

func (s *UserService) rotateOTP(ctx context.Context, u core.User) error {
	code, err := generateOTP()
	if err != nil {
		return err
	}
	u.OTP = code
	u.OTPExpiresAt = time.Now().UTC().Add(s.otpTTL)
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.sender.SendOTP(ctx, u.Email, code); err != nil {
		slog.WarnContext(ctx, "Failed to send OTP", "email", u.Email, "error", err)
	}
	return nil
}
