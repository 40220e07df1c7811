package dto

import (
	"time"

	"member_backend/internal/feature/auth/domain/entity"
)

// ProfilePicRes はプロフィール画像のレスポンスDTOです。
type ProfilePicRes struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// UserRes はユーザーのレスポンスDTOです。パスワードは含みません。
type UserRes struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	ProfilePic ProfilePicRes `json:"profilePic"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// AuthRes はsignup/loginのレスポンスデータです。
type AuthRes struct {
	User  UserRes `json:"user"`
	Token string  `json:"token"`
}

// ProfileRes はprofileのレスポンスデータです。
type ProfileRes struct {
	User UserRes `json:"user"`
}

// NewUserRes はエンティティをレスポンスDTOに変換します。
func NewUserRes(u entity.User) UserRes {
	return UserRes{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		ProfilePic: ProfilePicRes{
			URL:      u.ProfilePic.URL,
			PublicID: u.ProfilePic.PublicID,
		},
		CreatedAt: u.CreatedAt,
	}
}
