package usecase

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"member_backend/internal/feature/auth/domain/entity"
)

// dummyHash はユーザーが存在しない場合にも bcrypt 比較を実行するためのダミーハッシュです。
// タイミングからメールアドレスの存在が推測されるのを防ぎます。
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// CredentialStore はパスワードのハッシュ化と照合を担当します。
type CredentialStore struct {
	users UserRepository
	cost  int
}

// NewCredentialStore はCredentialStoreを生成します。cost が範囲外の場合は bcrypt.DefaultCost を使用します。
func NewCredentialStore(users UserRepository, cost int) *CredentialStore {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialStore{users: users, cost: cost}
}

// validatePassword はパスワードがセキュリティ要件を満たしているかチェックします。
func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrInvalidPassword
	}
	return nil
}

// RegisterCredential はパスワードをハッシュ化してユーザーを永続化します。
// メールアドレスは正規化され、重複時は ErrEmailAlreadyExists を返します。
func (s *CredentialStore) RegisterCredential(ctx context.Context, email, rawPassword, name string, pic entity.ProfilePic) (*entity.User, error) {
	if err := validatePassword(rawPassword); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(rawPassword), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Name:       name,
		Email:      entity.NormalizeEmail(email),
		Password:   string(hashed),
		ProfilePic: pic,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// VerifyCredential はメールアドレスとパスワードを照合し、一致したユーザーを返します。
// ユーザー未検出とパスワード不一致はどちらも ErrInvalidCredentials になります。
func (s *CredentialStore) VerifyCredential(ctx context.Context, email, rawPassword string) (*entity.User, error) {
	user, err := s.users.FindByEmail(ctx, entity.NormalizeEmail(email))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	passwordHash := dummyHash
	if err == nil {
		passwordHash = user.Password
	}

	// 第1引数はハッシュ化パスワード、第2引数は平文パスワード
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(rawPassword))
	if err != nil || compareErr != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
