package dto

import (
	"time"

	"member_backend/internal/feature/members/domain/entity"
)

// MemberRes はメンバーのレスポンスDTOです。
type MemberRes struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	ChurchName string    `json:"churchName"`
	Department string    `json:"department"`
	Position   string    `json:"position"`
	DateJoined time.Time `json:"dateJoined"`
	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MemberEnvelope は単一メンバーを返すレスポンスデータです。
type MemberEnvelope struct {
	Member MemberRes `json:"member"`
}

// PaginationRes はページ情報です。
type PaginationRes struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// MemberListRes は一覧取得のレスポンスデータです。
type MemberListRes struct {
	Members    []MemberRes   `json:"members"`
	Pagination PaginationRes `json:"pagination"`
}

// NewMemberRes はエンティティをレスポンスDTOに変換します。
func NewMemberRes(m entity.Member) MemberRes {
	return MemberRes{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Address:    m.Address,
		ChurchName: m.ChurchName,
		Department: m.Department,
		Position:   m.Position,
		DateJoined: m.DateJoined.UTC(),
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

// NewMemberListRes はページをレスポンスDTOに変換します。
func NewMemberListRes(p entity.Page) MemberListRes {
	out := make([]MemberRes, 0, len(p.Members))
	for _, m := range p.Members {
		out = append(out, NewMemberRes(m))
	}
	return MemberListRes{
		Members: out,
		Pagination: PaginationRes{
			Page:  p.Pagination.Page,
			Limit: p.Pagination.Limit,
			Total: p.Pagination.Total,
			Pages: p.Pagination.Pages,
		},
	}
}
