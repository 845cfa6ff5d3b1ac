package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/relense/influencer-markt-sub003/internal/models"
)

var (
	// ErrDuplicateEmail is returned when registering with an email that already exists.
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const tokenTTL = 24 * time.Hour

// UserStore persists users.
type UserStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateUserTx(ctx context.Context, tx pgx.Tx, email, passwordHash string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// ProfileCreator creates the empty profile every new user owns.
type ProfileCreator interface {
	CreateTx(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, displayName string) (*models.Profile, error)
}

// AccountCreator opens the credit account attached to a profile.
type AccountCreator interface {
	CreateAccountTx(ctx context.Context, tx pgx.Tx, profileID uuid.UUID) (*models.CreditAccount, error)
}

// CreditGranter pays out the signup bonus.
type CreditGranter interface {
	GrantCredits(ctx context.Context, profileID uuid.UUID, amountCents int64, reason string) (*models.CreditTransaction, error)
}

type Registration struct {
	User    *models.User
	Profile *models.Profile
	Account *models.CreditAccount
}

type Service interface {
	Register(ctx context.Context, email, password, displayName string) (*Registration, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

type Options struct {
	Secret           []byte
	SignupBonusCents int64
}

type service struct {
	users    UserStore
	profiles ProfileCreator
	accounts AccountCreator
	granter  CreditGranter
	opts     Options
	log      *slog.Logger
}

func NewService(users UserStore, profiles ProfileCreator, accounts AccountCreator, granter CreditGranter, opts Options, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{users: users, profiles: profiles, accounts: accounts, granter: granter, opts: opts, log: log}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

// Register creates the user, its profile and its credit account in one transaction.
// The optional signup bonus is granted after commit; a failed grant is logged only.
func (s *service) Register(ctx context.Context, email, password, displayName string) (*Registration, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	tx, err := s.users.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	user, err := s.users.CreateUserTx(ctx, tx, email, string(hash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	profile, err := s.profiles.CreateTx(ctx, tx, user.ID, displayName)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	account, err := s.accounts.CreateAccountTx(ctx, tx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("create credit account: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if s.opts.SignupBonusCents > 0 && s.granter != nil {
		if _, err := s.granter.GrantCredits(ctx, profile.ID, s.opts.SignupBonusCents, "signup_bonus"); err != nil {
			s.log.Error("signup bonus failed", "profile_id", profile.ID, "error", err)
		}
	}
	return &Registration{User: user, Profile: profile, Account: account}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(user.ID)
}

func (s *service) issueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.opts.Secret)
}

// ValidateToken returns the owner (user) id carried by a token.
func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	c := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return s.opts.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
