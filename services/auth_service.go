package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"faculty-ranker-api/models"
	"faculty-ranker-api/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	DefaultOTPCooldown    = 15 * time.Minute
	DefaultSignupTTL      = 30 * time.Minute
	DefaultMaxOTPAttempts = 5

	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

type AuthConfig struct {
	AllowedDomain  string
	AdminEmails    []string
	OTPCooldown    time.Duration
	SignupTTL      time.Duration
	MaxOTPAttempts int
}

type AuthService struct {
	store    repository.Store
	tokens   *TokenIssuer
	notifier AccountNotifier
	oauth    *oauth2.Config
	cfg      AuthConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(store repository.Store, tokens *TokenIssuer, notifier AccountNotifier, oauth *oauth2.Config, cfg AuthConfig, logger *zap.Logger) *AuthService {
	if cfg.OTPCooldown <= 0 {
		cfg.OTPCooldown = DefaultOTPCooldown
	}
	if cfg.SignupTTL <= 0 {
		cfg.SignupTTL = DefaultSignupTTL
	}
	if cfg.MaxOTPAttempts <= 0 {
		cfg.MaxOTPAttempts = DefaultMaxOTPAttempts
	}
	cfg.AllowedDomain = strings.ToLower(strings.TrimPrefix(cfg.AllowedDomain, "@"))
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:    store,
		tokens:   tokens,
		notifier: notifier,
		oauth:    oauth,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// NewGoogleOAuthConfig builds the OAuth2 client used by the Google login flow.
func NewGoogleOAuthConfig(clientID, clientSecret, backendURL string) *oauth2.Config {
	if clientID == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  strings.TrimRight(backendURL, "/") + "/api/v1/auth/google/callback",
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}
}

type SignupInput struct {
	Username string
	Email    string
	Phno     string
	Password string
}

func (s *AuthService) emailAllowed(email string) bool {
	if s.cfg.AllowedDomain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+s.cfg.AllowedDomain)
}

func (s *AuthService) isAdminEmail(email string) bool {
	email = strings.ToLower(email)
	for _, admin := range s.cfg.AdminEmails {
		if strings.EqualFold(admin, email) {
			return true
		}
	}
	return false
}

func (s *AuthService) roleFor(email string) string {
	if s.isAdminEmail(email) {
		return models.RoleAdmin
	}
	return models.RoleUser
}

func signupLock(email string) string { return "signup:" + email }

// RequestOTP stores a pending signup and mails its one-time code.
func (s *AuthService) RequestOTP(ctx context.Context, in SignupInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phno = strings.TrimSpace(in.Phno)
	if in.Username == "" || in.Email == "" || in.Phno == "" || in.Password == "" {
		return ErrMissingFields
	}
	if !s.emailAllowed(in.Email) {
		return ErrEmailNotAllowed
	}

	otp, err := generateOTP()
	if err != nil {
		return err
	}
	otpHash, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	err = s.store.Tx(ctx, func(tx repository.Tx) error {
		now := s.now()
		if _, err := tx.PurgeExpiredSignups(now); err != nil {
			return err
		}

		if _, err := tx.UserByEmailOrPhone(in.Email, in.Phno); err == nil {
			return ErrAlreadyRegistered
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		pending, err := tx.PendingSignup(in.Email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if pending != nil && pending.Live(now) {
			if elapsed := now.Sub(pending.LastSentAt); elapsed < s.cfg.OTPCooldown {
				return &OTPCooldownError{Remaining: s.cfg.OTPCooldown - elapsed}
			}
		}

		return tx.SavePendingSignup(&models.PendingSignup{
			Email:        in.Email,
			Username:     in.Username,
			Phno:         in.Phno,
			PasswordHash: string(passwordHash),
			OTPHash:      string(otpHash),
			Attempts:     0,
			LastSentAt:   now,
			ExpiresAt:    now.Add(s.cfg.SignupTTL),
		})
	}, signupLock(in.Email))
	if err != nil {
		return storageErr("request otp", err)
	}

	if err := s.notifier.SendOTP(ctx, in.Email, otp); err != nil {
		// Drop the row so the cooldown does not block a retry of a mail that never left.
		_ = s.store.Tx(detachedContext(ctx), func(tx repository.Tx) error {
			return tx.DeletePendingSignup(in.Email)
		}, signupLock(in.Email))
		return fmt.Errorf("send otp: %w", err)
	}
	s.logger.Info("otp sent", zap.String("email", in.Email))
	return nil
}

// VerifyOTP completes a pending signup and returns an access token.
func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" {
		return "", nil, ErrMissingFields
	}

	var (
		user    *models.User
		outcome error
	)
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		now := s.now()
		pending, err := tx.PendingSignup(email)
		if errors.Is(err, repository.ErrNotFound) {
			outcome = ErrNoPendingSignup
			return nil
		}
		if err != nil {
			return err
		}
		if !pending.Live(now) {
			outcome = ErrNoPendingSignup
			return tx.DeletePendingSignup(email)
		}

		// Failed attempts must be committed, so the outcome is carried out of
		// the transaction instead of being returned from it.
		if bcrypt.CompareHashAndPassword([]byte(pending.OTPHash), []byte(otp)) != nil {
			outcome = ErrInvalidOTP
			pending.Attempts++
			if pending.Attempts >= s.cfg.MaxOTPAttempts {
				return tx.DeletePendingSignup(email)
			}
			return tx.SavePendingSignup(pending)
		}

		u := &models.User{
			Username: pending.Username,
			Email:    pending.Email,
			Phno:     pending.Phno,
			Password: pending.PasswordHash,
			Provider: models.ProviderLocal,
			Role:     s.roleFor(pending.Email),
			Verified: true,
			CreateAt: now,
		}
		if err := tx.CreateUser(u); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrAlreadyRegistered
			}
			return err
		}
		if err := tx.DeletePendingSignup(email); err != nil {
			return err
		}
		user = u
		return nil
	}, signupLock(email))
	if err != nil {
		return "", nil, storageErr("verify otp", err)
	}
	if outcome != nil {
		return "", nil, outcome
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// SignIn checks local credentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !s.emailAllowed(email) && !s.isAdminEmail(email) {
		return "", nil, ErrEmailNotAllowed
	}

	var user *models.User
	err := s.store.Tx(ctx, func(tx repository.Tx) error {
		u, err := tx.UserByEmail(email)
		if err != nil {
			return notFound(err, ErrInvalidCredentials)
		}
		user = u
		return nil
	})
	if err != nil {
		return "", nil, storageErr("sign in", err)
	}

	if !user.Verified || user.Password == "" {
		return "", nil, ErrInvalidCredentials
	}
	if user.Banned {
		return "", nil, ErrBanned
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// OAuthEnabled reports whether Google login is configured.
func (s *AuthService) OAuthEnabled() bool {
	return s.oauth != nil
}

// GoogleAuthURL returns the consent page URL carrying a signed state.
func (s *AuthService) GoogleAuthURL() (string, error) {
	if s.oauth == nil {
		return "", errors.New("google oauth is not configured")
	}
	state, err := s.tokens.IssueState()
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state), nil
}

type googleProfile struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleCallback finishes the OAuth flow, creating the user on first login.
// The returned user is set whenever the account was resolved, including when
// ErrEmailNotAllowed or ErrBanned is returned.
func (s *AuthService) GoogleCallback(ctx context.Context, state, code string) (string, *models.User, error) {
	if s.oauth == nil {
		return "", nil, errors.New("google oauth is not configured")
	}
	if err := s.tokens.VerifyState(state); err != nil {
		return "", nil, err
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("exchange code: %w", err)
	}
	profile, err := s.fetchGoogleProfile(ctx, tok)
	if err != nil {
		return "", nil, err
	}
	email := strings.ToLower(strings.TrimSpace(profile.Email))
	if email == "" {
		return "", nil, errors.New("no email found in Google profile")
	}

	var (
		user     *models.User
		password string
	)
	err = s.store.Tx(ctx, func(tx repository.Tx) error {
		u, err := tx.UserByEmail(email)
		if errors.Is(err, repository.ErrNotFound) {
			name := profile.Name
			if name == "" {
				name = strings.Split(email, "@")[0]
			}
			u = &models.User{
				Username: name,
				Email:    email,
				Provider: models.ProviderGoogle,
				Role:     s.roleFor(email),
				Verified: true,
				CreateAt: s.now(),
			}
			if err := tx.CreateUser(u); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		user = u

		if user.Banned || (!s.emailAllowed(email) && !s.isAdminEmail(email)) {
			return nil
		}

		if user.Password == "" {
			password, err = generatePassword()
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			user.Password = string(hash)
			return tx.UpdateUser(user)
		}
		return nil
	}, signupLock(email))
	if err != nil {
		return "", nil, storageErr("google login", err)
	}

	if !s.emailAllowed(email) && !s.isAdminEmail(email) {
		return "", user, ErrEmailNotAllowed
	}
	if user.Banned {
		return "", user, ErrBanned
	}

	if password != "" {
		if err := s.notifier.SendLocalPassword(ctx, email, password); err != nil {
			s.logger.Error("error sending password email", zap.String("email", email), zap.Error(err))
		}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) fetchGoogleProfile(ctx context.Context, tok *oauth2.Token) (*googleProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var profile googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &profile, nil
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func generatePassword() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
