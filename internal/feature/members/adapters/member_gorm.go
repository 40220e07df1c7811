// Package adapters はmembersフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"member_backend/internal/feature/members/domain/entity"
	"member_backend/internal/feature/members/usecase"
)

// searchSep は search_text 内のフィールド区切りです。検索語には含まれません。
const searchSep = "\x1f"

// likeEscaper は検索語中のLIKEワイルドカードをエスケープします。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// MemberModel はmembersテーブルのGORMモデルです。
type MemberModel struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Name       string    `gorm:"size:255;not null"`
	Email      string    `gorm:"size:255;not null"`
	Phone      string    `gorm:"size:64;not null"`
	Address    string    `gorm:"size:512;not null"`
	ChurchName string    `gorm:"size:255;not null;index:idx_members_owner_church,priority:2"`
	Department string    `gorm:"size:255;not null"`
	Position   string    `gorm:"size:255;not null;default:Member"`
	DateJoined time.Time `gorm:"not null"`
	CreatedBy  string    `gorm:"size:36;not null;index;index:idx_members_owner_church,priority:1"`
	// SearchText は検索対象フィールドをGoで小文字化して連結した値です。
	// SQLiteのLOWERはASCIIしか変換しないため、大文字小文字の同一視はGo側で行います。
	SearchText string `gorm:"not null;default:''"`
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM.
func (MemberModel) TableName() string {
	return "members"
}

// ToEntity はGORMモデルをドメインエンティティに変換します。
func (m *MemberModel) ToEntity() entity.Member {
	return entity.Member{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
		Address:    m.Address,
		ChurchName: m.ChurchName,
		Department: m.Department,
		Position:   m.Position,
		DateJoined: m.DateJoined,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toModel(e *entity.Member) *MemberModel {
	return &MemberModel{
		ID:         e.ID,
		Name:       e.Name,
		Email:      e.Email,
		Phone:      e.Phone,
		Address:    e.Address,
		ChurchName: e.ChurchName,
		Department: e.Department,
		Position:   e.Position,
		DateJoined: e.DateJoined,
		CreatedBy:  e.CreatedBy,
		SearchText: searchText(e),
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

// searchText は name, email, phone, department, position, churchName を小文字化して連結します。
func searchText(e *entity.Member) string {
	return strings.ToLower(strings.Join([]string{
		e.Name, e.Email, e.Phone, e.Department, e.Position, e.ChurchName,
	}, searchSep))
}

// memberGorm はMemberRepositoryインターフェースのGORM実装です。
type memberGorm struct {
	db *gorm.DB
}

var _ usecase.MemberRepository = (*memberGorm)(nil)

// NewMemberGorm は指定されたgorm.DB接続でmemberGormの新しいインスタンスを生成します。
func NewMemberGorm(db *gorm.DB) *memberGorm {
	return &memberGorm{db: db}
}

// owned は所有者で絞り込んだクエリを返します。すべての読み書きはここを通ります。
func (r *memberGorm) owned(ctx context.Context, ownerID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&MemberModel{}).Where("created_by = ?", ownerID)
}

// Create はメンバーを保存し、採番したIDとタイムスタンプを m に反映します。
func (r *memberGorm) Create(ctx context.Context, m *entity.Member) error {
	if m == nil {
		return errors.New("member is nil")
	}
	if m.CreatedBy == "" {
		return errors.New("member has no owner")
	}
	if m.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		m.ID = id.String()
	}

	row := toModel(m)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	m.CreatedAt = row.CreatedAt
	m.UpdatedAt = row.UpdatedAt
	return nil
}

// List は条件に一致する所有者のメンバーを created_at DESC, id DESC で返します。
func (r *memberGorm) List(ctx context.Context, ownerID string, q entity.ListQuery) ([]entity.Member, int64, error) {
	base := r.owned(ctx, ownerID)
	if q.ChurchName != "" {
		base = base.Where("church_name = ?", q.ChurchName)
	}
	if term := strings.ReplaceAll(strings.ToLower(q.Search), searchSep, ""); term != "" {
		base = base.Where(`search_text LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(term)+"%")
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entity.Member{}, 0, nil
	}

	var rows []MemberModel
	err := base.Session(&gorm.Session{}).
		Order("created_at DESC").Order("id DESC").
		Offset(q.Offset()).Limit(q.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]entity.Member, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToEntity())
	}
	return out, total, nil
}

// FindByID は所有者のメンバーを取得します。
// 他の所有者のメンバーや存在しないIDはusecase.ErrMemberNotFoundになります。
func (r *memberGorm) FindByID(ctx context.Context, ownerID, id string) (*entity.Member, error) {
	if id == "" {
		return nil, usecase.ErrMemberNotFound
	}
	var row MemberModel
	if err := r.owned(ctx, ownerID).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrMemberNotFound
		}
		return nil, err
	}
	m := row.ToEntity()
	return &m, nil
}

// Update は patch の非nilフィールドのみを更新し、更新後のメンバーを返します。
func (r *memberGorm) Update(ctx context.Context, ownerID, id string, patch entity.MemberPatch) (*entity.Member, error) {
	if id == "" {
		return nil, usecase.ErrMemberNotFound
	}

	var out *entity.Member
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row MemberModel
		err := tx.Where("created_by = ? AND id = ?", ownerID, id).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usecase.ErrMemberNotFound
		}
		if err != nil {
			return err
		}

		m := row.ToEntity()
		updates := map[string]any{"updated_at": time.Now().UTC()}
		if !patch.IsEmpty() {
			updates = patchColumns(patch, updates)
			patch.Apply(&m)
			updates["search_text"] = searchText(&m)
		}

		res := tx.Model(&MemberModel{}).
			Where("created_by = ? AND id = ?", ownerID, id).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return usecase.ErrMemberNotFound
		}

		if err := tx.Where("created_by = ? AND id = ?", ownerID, id).First(&row).Error; err != nil {
			return err
		}
		m = row.ToEntity()
		out = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BackfillSearchText は search_text が未設定の行を再計算します。
// search_text 追加前に作成された行を検索対象にするため、マイグレーション後に呼び出します。
func (r *memberGorm) BackfillSearchText(ctx context.Context) (int64, error) {
	var n int64
	var rows []MemberModel
	res := r.db.WithContext(ctx).Where("search_text = ?", "").
		FindInBatches(&rows, 200, func(_ *gorm.DB, _ int) error {
			for i := range rows {
				m := rows[i].ToEntity()
				err := r.db.WithContext(ctx).Model(&MemberModel{}).Where("id = ?", rows[i].ID).
					UpdateColumn("search_text", searchText(&m)).Error
				if err != nil {
					return err
				}
				n++
			}
			return nil
		})
	if res.Error != nil {
		return n, fmt.Errorf("backfill search_text: %w", res.Error)
	}
	return n, nil
}

// Delete は所有者のメンバーを削除し、1件以上削除した場合に true を返します。
func (r *memberGorm) Delete(ctx context.Context, ownerID, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Where("created_by = ? AND id = ?", ownerID, id).
		Delete(&MemberModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// patchColumns はパッチの非nilフィールドをカラム名で cols に追加します。
func patchColumns(p entity.MemberPatch, cols map[string]any) map[string]any {
	set := func(col string, v *string) {
		if v != nil {
			cols[col] = *v
		}
	}
	set("name", p.Name)
	set("email", p.Email)
	set("phone", p.Phone)
	set("address", p.Address)
	set("church_name", p.ChurchName)
	set("department", p.Department)
	set("position", p.Position)
	if p.DateJoined != nil {
		cols["date_joined"] = *p.DateJoined
	}
	return cols
}
