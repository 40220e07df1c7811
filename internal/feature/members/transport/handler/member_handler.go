// Package handler はmembersフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"member_backend/internal/api"
	"member_backend/internal/feature/members/domain/entity"
	"member_backend/internal/feature/members/transport/http/dto"
	"member_backend/internal/feature/members/usecase"
	"member_backend/internal/platform/identity"
)

const (
	// MessageMemberNotFound はメンバーが存在しない、または所有者が異なる場合のメッセージです。
	MessageMemberNotFound = "Member not found"
	// MessageAuthRequired は認証ゲートを経由せずに呼ばれた場合のメッセージです。
	MessageAuthRequired = "Authentication required"
)

// MembersUsecase はメンバー操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type MembersUsecase interface {
	Create(ctx context.Context, ownerID string, in entity.MemberInput) (*entity.Member, error)
	List(ctx context.Context, ownerID string, opts usecase.ListOptions) (*entity.Page, error)
	Get(ctx context.Context, ownerID, id string) (*entity.Member, error)
	Update(ctx context.Context, ownerID, id string, patch entity.MemberPatch) (*entity.Member, error)
	Delete(ctx context.Context, ownerID, id string) (bool, error)
}

// MembersHandler はメンバー操作のHTTPリクエストを処理します。
type MembersHandler struct {
	uc  MembersUsecase
	log *zap.Logger
}

// NewMembersHandler は指定されたusecaseでMembersHandlerの新しいインスタンスを生成します。
func NewMembersHandler(uc MembersUsecase, log *zap.Logger) *MembersHandler {
	return &MembersHandler{uc: uc, log: log}
}

// owner は認証済みユーザーのIDを取り出します。見つからない場合は401を書き込みます。
func owner(c *gin.Context) (string, bool) {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok {
		api.Abort(c, http.StatusUnauthorized, MessageAuthRequired, nil)
		return "", false
	}
	return id.UserID, true
}

// Create はメンバーを作成します。
//
// エンドポイント例:
// POST /api/members
func (h *MembersHandler) Create(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}

	var req dto.CreateMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationFailed(c, err)
		return
	}
	in, ferrs := req.ToInput()
	if len(ferrs) > 0 {
		api.Abort(c, http.StatusBadRequest, api.MessageValidationError, ferrs)
		return
	}

	m, err := h.uc.Create(c.Request.Context(), ownerID, in)
	if err != nil {
		h.fail(c, "create member", err)
		return
	}
	h.log.Info("member created", zap.String("member_id", m.ID), zap.String("owner_id", ownerID))
	api.OK(c, http.StatusCreated, "Member created successfully", dto.MemberEnvelope{Member: dto.NewMemberRes(*m)})
}

// List は所有者のメンバーをページ単位で返します。
//
// エンドポイント例:
// GET /api/members?page=1&limit=10&churchName=Grace&search=ann
func (h *MembersHandler) List(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}

	var q dto.ListMembersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.ValidationFailed(c, err)
		return
	}

	page, err := h.uc.List(c.Request.Context(), ownerID, usecase.ListOptions{
		Page:       q.PageNumber(),
		Limit:      q.PageSize(),
		ChurchName: q.ChurchName,
		Search:     q.Search,
	})
	if err != nil {
		h.fail(c, "list members", err)
		return
	}
	api.OK(c, http.StatusOK, "Members retrieved successfully", dto.NewMemberListRes(*page))
}

// Get はメンバーを1件返します。
//
// エンドポイント例:
// GET /api/members/:id
func (h *MembersHandler) Get(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}

	m, err := h.uc.Get(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		h.fail(c, "get member", err)
		return
	}
	api.OK(c, http.StatusOK, "Member retrieved successfully", dto.MemberEnvelope{Member: dto.NewMemberRes(*m)})
}

// Update はメンバーを部分更新します。
//
// エンドポイント例:
// PUT /api/members/:id
func (h *MembersHandler) Update(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}

	var req dto.UpdateMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		api.ValidationFailed(c, err)
		return
	}
	patch, ferrs := req.ToPatch()
	if len(ferrs) > 0 {
		api.Abort(c, http.StatusBadRequest, api.MessageValidationError, ferrs)
		return
	}

	m, err := h.uc.Update(c.Request.Context(), ownerID, c.Param("id"), patch)
	if err != nil {
		h.fail(c, "update member", err)
		return
	}
	api.OK(c, http.StatusOK, "Member updated successfully", dto.MemberEnvelope{Member: dto.NewMemberRes(*m)})
}

// Delete はメンバーを削除します。
//
// エンドポイント例:
// DELETE /api/members/:id
func (h *MembersHandler) Delete(c *gin.Context) {
	ownerID, ok := owner(c)
	if !ok {
		return
	}

	deleted, err := h.uc.Delete(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		h.fail(c, "delete member", err)
		return
	}
	if !deleted {
		api.Abort(c, http.StatusNotFound, MessageMemberNotFound, nil)
		return
	}
	h.log.Info("member deleted", zap.String("member_id", c.Param("id")), zap.String("owner_id", ownerID))
	api.OK(c, http.StatusOK, "Member deleted successfully", nil)
}

func (h *MembersHandler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, usecase.ErrMemberNotFound) {
		api.Abort(c, http.StatusNotFound, MessageMemberNotFound, nil)
		return
	}
	h.log.Error(op+" failed", zap.Error(err))
	api.Internal(c, err)
}
