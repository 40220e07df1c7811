// Package adapters はauthフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"member_backend/internal/feature/auth/domain/entity"
	"member_backend/internal/feature/auth/usecase"
	"member_backend/internal/platform/db"
)

// UserModel はusersテーブルのGORMモデルです。
type UserModel struct {
	ID                 string `gorm:"primaryKey;size:36"`
	Name               string `gorm:"size:255;not null"`
	Email              string `gorm:"uniqueIndex;size:255;not null"`
	Password           string `gorm:"size:255;not null"`
	ProfilePicURL      string `gorm:"size:1024;not null"`
	ProfilePicPublicID string `gorm:"size:255;not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName returns the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}

// ToEntity はGORMモデルをドメインエンティティに変換します。
func (m *UserModel) ToEntity() *entity.User {
	return &entity.User{
		ID:       m.ID,
		Name:     m.Name,
		Email:    m.Email,
		Password: m.Password,
		ProfilePic: entity.ProfilePic{
			URL:      m.ProfilePicURL,
			PublicID: m.ProfilePicPublicID,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// UserModelFromEntity はドメインエンティティをGORMモデルに変換します。
func UserModelFromEntity(u *entity.User) *UserModel {
	return &UserModel{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		Password:           u.Password,
		ProfilePicURL:      u.ProfilePic.URL,
		ProfilePicPublicID: u.ProfilePic.PublicID,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// userGorm はUserRepositoryインターフェースのGORM実装です。
type userGorm struct {
	db *gorm.DB
}

// userGormがUserRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.UserRepository = (*userGorm)(nil)

// NewUserGorm は指定されたgorm.DB接続でuserGormの新しいインスタンスを生成します。
func NewUserGorm(db *gorm.DB) *userGorm {
	return &userGorm{db: db}
}

// Create はユーザーをデータベースに追加し、採番したIDとタイムスタンプを u に反映します。
// 同じメールアドレスのユーザーが既に存在する場合、usecase.ErrEmailAlreadyExistsを返します。
func (r *userGorm) Create(ctx context.Context, u *entity.User) error {
	if u == nil {
		return errors.New("user is nil")
	}
	if u.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		u.ID = id.String()
	}
	u.Email = entity.NormalizeEmail(u.Email)

	m := UserModelFromEntity(u)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return usecase.ErrEmailAlreadyExists
		}
		return err
	}
	u.CreatedAt = m.CreatedAt
	u.UpdatedAt = m.UpdatedAt
	return nil
}

// FindByEmail はメールアドレスでユーザーを取得します。
// ユーザーが存在しない場合、usecase.ErrUserNotFoundを返します。
func (r *userGorm) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).Where("email = ?", entity.NormalizeEmail(email)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return m.ToEntity(), nil
}

// FindByID はIDでユーザーを取得します。
// ユーザーが存在しない場合、usecase.ErrUserNotFoundを返します。
func (r *userGorm) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if id == "" {
		return nil, usecase.ErrUserNotFound
	}
	var m UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}
	return m.ToEntity(), nil
}
