// Package auth registers parlor owners and issues the bearer tokens that
// identify them. An account id is also the id of the parlor the owner manages.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Tom8810/janso/internal/apperr"
	"github.com/Tom8810/janso/internal/model"
	"github.com/Tom8810/janso/internal/parlor"
)

// Registration is the owner and parlor data submitted at sign-up.
type Registration struct {
	Email          string
	Password       string
	OwnerName      string
	Name           string
	AddressDetails parlor.AddressDetails
	PhoneNumber    string
	BusinessHours  *parlor.BusinessHours
	Description    string
	MaxCapacity    int
}

// Session is returned after a successful sign-up or sign-in.
type Session struct {
	Token      string    `json:"token"`
	ParlorID   string    `json:"parlor_id"`
	ParlorName string    `json:"parlor_name"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Service handles owner accounts.
type Service struct {
	db      *gorm.DB
	parlors *parlor.Service
	tokens  *TokenManager
	revoker Revoker
}

// NewService creates an auth service.
func NewService(db *gorm.DB, parlors *parlor.Service, tokens *TokenManager, revoker Revoker) *Service {
	return &Service{db: db, parlors: parlors, tokens: tokens, revoker: revoker}
}

// FullAddress joins the non-empty address parts with single spaces.
func FullAddress(d parlor.AddressDetails) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{d.Prefecture, d.Address1, d.Address2, d.Building} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Register creates the owner account and its parlor document, then signs
// the owner in.
func (s *Service) Register(ctx context.Context, reg Registration) (*Session, error) {
	email := normalizeEmail(reg.Email)
	if !strings.Contains(email, "@") {
		return nil, errInvalidEmail
	}
	if len(reg.Password) < MinPasswordLength {
		return nil, errWeakPassword
	}
	if strings.TrimSpace(reg.Name) == "" {
		return nil, errInvalidRequest
	}

	hash, err := hashPassword(reg.Password)
	if err != nil {
		return nil, apperr.Internal(msgRegisterFailed, err)
	}
	account := model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		OwnerName:    strings.TrimSpace(reg.OwnerName),
	}
	if err := s.createAccount(ctx, &account); err != nil {
		return nil, err
	}

	details := reg.AddressDetails
	p := parlor.Registration{
		Name:      strings.TrimSpace(reg.Name),
		Address:   FullAddress(details),
		OwnerName: account.OwnerName,
		OwnerMail: email,
		Profile: parlor.Profile{
			PhoneNumber:    reg.PhoneNumber,
			BusinessHours:  reg.BusinessHours,
			Description:    reg.Description,
			MaxCapacity:    reg.MaxCapacity,
			AddressDetails: &details,
		},
	}
	if err := s.parlors.SaveParlor(ctx, account.ID, p, nil); err != nil {
		if delErr := s.db.WithContext(ctx).Delete(&model.Account{}, "id = ?", account.ID).Error; delErr != nil {
			logrus.WithError(delErr).WithField("account_id", account.ID).Error("failed to remove account after parlor save failure")
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"parlor_id": account.ID,
		"name":      p.Name,
	}).Info("parlor registered")
	return s.issue(account.ID, p.Name)
}

// CreateAccount stores an owner account for an existing parlor id. Seeding
// uses it to attach a login to a demo parlor.
func (s *Service) CreateAccount(ctx context.Context, parlorID, email, password, ownerName string) error {
	if len(password) < MinPasswordLength {
		return errWeakPassword
	}
	hash, err := hashPassword(password)
	if err != nil {
		return apperr.Internal(msgRegisterFailed, err)
	}
	return s.createAccount(ctx, &model.Account{
		ID:           parlorID,
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		OwnerName:    ownerName,
	})
}

func (s *Service) createAccount(ctx context.Context, account *model.Account) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Account{}).Where("email = ?", account.Email).Count(&count).Error; err != nil {
			return apperr.Internal(msgRegisterFailed, err)
		}
		if count > 0 {
			return errEmailInUse
		}
		if err := tx.Create(account).Error; err != nil {
			return apperr.Internal(msgRegisterFailed, err)
		}
		return nil
	})
}

// Login checks the owner's credentials and returns a new token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	var account model.Account
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Internal(msgLoginFailed, err)
	}
	if !checkPassword(account.PasswordHash, password) {
		return nil, errInvalidCredentials
	}

	p, err := s.parlors.GetParlor(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&account).Update("last_login_at", &now).Error; err != nil {
		logrus.WithError(err).WithField("account_id", account.ID).Warn("failed to record last login")
	}
	return s.issue(account.ID, p.Name)
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	exp, err := s.tokens.Expiry(token)
	if err != nil {
		return ErrLoginRequired
	}
	if err := s.revoker.Revoke(ctx, token, time.Until(exp)); err != nil {
		return apperr.Internal(msgLogoutFailed, err)
	}
	return nil
}

// Authenticate returns the account id a token was issued to.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	revoked, err := s.revoker.IsRevoked(ctx, token)
	if err != nil {
		logrus.WithError(err).Warn("token blacklist lookup failed")
		return "", ErrLoginRequired
	}
	if revoked {
		return "", ErrLoginRequired
	}
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", ErrLoginRequired
	}
	return claims.Subject, nil
}

// Account returns the account with the given id.
func (s *Service) Account(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := s.db.WithContext(ctx).Take(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(CodeUserNotFound, MsgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(msgLoginFailed, err)
	}
	return &account, nil
}

func (s *Service) issue(accountID, parlorName string) (*Session, error) {
	token, err := s.tokens.Generate(accountID)
	if err != nil {
		return nil, apperr.Internal(msgLoginFailed, err)
	}
	exp, err := s.tokens.Expiry(token)
	if err != nil {
		return nil, apperr.Internal(msgLoginFailed, err)
	}
	return &Session{Token: token, ParlorID: accountID, ParlorName: parlorName, ExpiresAt: exp}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
