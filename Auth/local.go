package Auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type credentialRow struct {
	UID          string `gorm:"primaryKey;size:128"`
	Email        string `gorm:"uniqueIndex;size:255"`
	PasswordHash []byte
	CreatedAt    time.Time
}

func (credentialRow) TableName() string { return "credentials" }

// LocalProvider keeps bcrypt hashed credentials next to the SQL store and
// issues HS256 tokens.
type LocalProvider struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
}

func NewLocalProvider(db *gorm.DB, secret string, ttl time.Duration) (*LocalProvider, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if err := db.AutoMigrate(&credentialRow{}); err != nil {
		return nil, fmt.Errorf("error migrating credentials: %w", err)
	}
	return &LocalProvider{db: db, secret: []byte(secret), ttl: ttl}, nil
}

func (p *LocalProvider) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var count int64
	if err := p.db.WithContext(ctx).Model(&credentialRow{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return "", fmt.Errorf("error checking email: %w", err)
	}
	if count > 0 {
		return "", ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	row := credentialRow{UID: uuid.NewString(), Email: email, PasswordHash: hash}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("error creating credentials: %w", err)
	}
	return row.UID, nil
}

func (p *LocalProvider) DeleteAccount(ctx context.Context, uid string) error {
	if err := p.db.WithContext(ctx).Where("uid = ?", uid).Delete(&credentialRow{}).Error; err != nil {
		return fmt.Errorf("error deleting credentials %s: %w", uid, err)
	}
	return nil
}

// Login checks the password and returns a signed token for the account.
func (p *LocalProvider) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	var row credentialRow
	err := p.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error loading credentials: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(row.PasswordHash, []byte(password)); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	expires := time.Now().Add(p.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   row.UID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error signing token: %w", err)
	}
	return token, expires, nil
}

func (p *LocalProvider) VerifyToken(_ context.Context, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
