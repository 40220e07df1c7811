package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"member_backend/internal/feature/members/domain/entity"
)

const (
	// DefaultPage はページ未指定時のページ番号です。
	DefaultPage = 1
	// DefaultLimit はページ未指定時の1ページあたりの件数です。
	DefaultLimit = 10
	// MaxLimit は1ページあたりの最大件数です。
	MaxLimit = 100
)

// MemberRepository はメンバーの永続化層を抽象化します。
// すべての操作は所有者IDで絞り込まれます。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type MemberRepository interface {
	// Create はメンバーを保存し、ID とタイムスタンプを設定します。
	Create(ctx context.Context, m *entity.Member) error
	// List は所有者のメンバーを作成日時の降順で返し、条件に一致する総件数も返します。
	List(ctx context.Context, ownerID string, q entity.ListQuery) ([]entity.Member, int64, error)
	// FindByID は所有者のメンバーを取得します。存在しない場合は ErrMemberNotFound を返します。
	FindByID(ctx context.Context, ownerID, id string) (*entity.Member, error)
	// Update は所有者のメンバーを部分更新し、更新後の値を返します。
	Update(ctx context.Context, ownerID, id string, patch entity.MemberPatch) (*entity.Member, error)
	// Delete は所有者のメンバーを削除し、削除されたかどうかを返します。
	Delete(ctx context.Context, ownerID, id string) (bool, error)
}

// ListOptions はクライアントから受け取った一覧取得条件です。
type ListOptions struct {
	Page       int
	Limit      int
	ChurchName string
	Search     string
}

// membersUsecase はメンバー操作のユースケースです。
type membersUsecase struct {
	members MemberRepository
	now     func() time.Time
	tracer  trace.Tracer
}

// NewMembersUsecase はmembersUsecaseの新しいインスタンスを生成します。
func NewMembersUsecase(members MemberRepository) *membersUsecase {
	return &membersUsecase{
		members: members,
		now:     time.Now,
		tracer:  otel.Tracer("member_backend/members"),
	}
}

// NormalizeListOptions はページ番号と件数を許容範囲に丸めます。
func NormalizeListOptions(opts ListOptions) entity.ListQuery {
	q := entity.ListQuery{
		Page:       opts.Page,
		Limit:      opts.Limit,
		ChurchName: strings.TrimSpace(opts.ChurchName),
		Search:     strings.TrimSpace(opts.Search),
	}
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	switch {
	case q.Limit < 1:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	return q
}

// Pages は総件数と1ページあたりの件数からページ数を切り上げで計算します。
func Pages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// Create は所有者に紐づくメンバーを作成します。
// position が空なら "Member"、dateJoined が未指定なら現在時刻を設定します。
func (u *membersUsecase) Create(ctx context.Context, ownerID string, in entity.MemberInput) (*entity.Member, error) {
	ctx, span := u.tracer.Start(ctx, "members.create")
	defer span.End()

	m := &entity.Member{
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:      strings.TrimSpace(in.Phone),
		Address:    strings.TrimSpace(in.Address),
		ChurchName: strings.TrimSpace(in.ChurchName),
		Department: strings.TrimSpace(in.Department),
		Position:   strings.TrimSpace(in.Position),
		CreatedBy:  ownerID,
	}
	if m.Position == "" {
		m.Position = entity.DefaultPosition
	}
	if in.DateJoined != nil {
		m.DateJoined = in.DateJoined.UTC()
	} else {
		m.DateJoined = u.now().UTC()
	}

	if err := u.members.Create(ctx, m); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return m, nil
}

// List は所有者のメンバーをページ単位で返します。
func (u *membersUsecase) List(ctx context.Context, ownerID string, opts ListOptions) (*entity.Page, error) {
	q := NormalizeListOptions(opts)
	ctx, span := u.tracer.Start(ctx, "members.list", trace.WithAttributes(
		attribute.Int("page", q.Page),
		attribute.Int("limit", q.Limit),
		attribute.Bool("search", q.Search != ""),
	))
	defer span.End()

	members, total, err := u.members.List(ctx, ownerID, q)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	if members == nil {
		members = []entity.Member{}
	}
	return &entity.Page{
		Members: members,
		Pagination: entity.Pagination{
			Page:  q.Page,
			Limit: q.Limit,
			Total: total,
			Pages: Pages(total, q.Limit),
		},
	}, nil
}

// Get は所有者のメンバーを1件取得します。
func (u *membersUsecase) Get(ctx context.Context, ownerID, id string) (*entity.Member, error) {
	ctx, span := u.tracer.Start(ctx, "members.get")
	defer span.End()

	return u.members.FindByID(ctx, ownerID, id)
}

// Update は指定されたフィールドのみを更新します。
func (u *membersUsecase) Update(ctx context.Context, ownerID, id string, patch entity.MemberPatch) (*entity.Member, error) {
	ctx, span := u.tracer.Start(ctx, "members.update")
	defer span.End()

	patch = patch.Normalize()
	if patch.DateJoined != nil {
		t := patch.DateJoined.UTC()
		patch.DateJoined = &t
	}
	return u.members.Update(ctx, ownerID, id, patch)
}

// Delete は所有者のメンバーを削除します。削除対象がなければ false を返します。
func (u *membersUsecase) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	ctx, span := u.tracer.Start(ctx, "members.delete")
	defer span.End()

	return u.members.Delete(ctx, ownerID, id)
}
