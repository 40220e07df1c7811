// Package handler はauthフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"member_backend/internal/api"
	"member_backend/internal/feature/auth/domain/entity"
	"member_backend/internal/feature/auth/transport/http/dto"
	"member_backend/internal/feature/auth/usecase"
	"member_backend/internal/platform/identity"
	"member_backend/internal/platform/media"
)

// profilePicField はsignupフォームの画像フィールド名です。
const profilePicField = "profilePic"

// AuthUsecase は認証操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type AuthUsecase interface {
	// Signup は新規ユーザーを登録し、トークンを返します。
	Signup(ctx context.Context, in usecase.SignupInput) (*usecase.AuthResult, error)
	// Login はユーザーを認証し、成功時にトークンを返します。
	Login(ctx context.Context, email, password string) (*usecase.AuthResult, error)
	// Profile は認証済みユーザーの情報を返します。
	Profile(ctx context.Context, userID string) (*entity.User, error)
}

// AuthHandler は認証操作のHTTPリクエストを処理します。
type AuthHandler struct {
	auth AuthUsecase
	log  *zap.Logger
}

// NewAuthHandler はAuthHandlerの新しいインスタンスを生成します。
func NewAuthHandler(auth AuthUsecase, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

// Signup はユーザー登録APIエンドポイントを処理します。
// - JSONまたはmultipart/form-dataをSignupReqにバインド
// - バリデーションエラー時は400を返却
// - メール重複時は400を返却
// - 画像アップロード失敗時は500を返却
// - 成功時はユーザーとトークン付きで201を返却
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupReq
	if err := c.ShouldBind(&req); err != nil {
		h.log.Warn("signup validation failed", zap.Error(err), zap.String("remote_addr", c.ClientIP()))
		api.ValidationFailed(c, err)
		return
	}

	pic, err := readProfilePic(c)
	if err != nil {
		h.log.Warn("signup image rejected", zap.Error(err), zap.String("remote_addr", c.ClientIP()))
		api.Abort(c, http.StatusBadRequest, api.MessageValidationError,
			[]api.FieldError{{Field: profilePicField, Message: err.Error()}})
		return
	}

	res, err := h.auth.Signup(c.Request.Context(), usecase.SignupInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		ProfilePic: pic,
	})
	if err != nil {
		h.fail(c, "signup", err)
		return
	}

	h.log.Info("user signup successful", zap.String("user_id", res.User.ID), zap.String("remote_addr", c.ClientIP()))
	api.OK(c, http.StatusCreated, "User registered successfully", dto.AuthRes{User: dto.NewUserRes(res.User), Token: res.Token})
}

// Login はユーザーログインAPIエンドポイントを処理します。
// - バリデーションエラー時は400を返却
// - 認証失敗時は401を返却
// - 認証成功時はトークン付きで200を返却
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginReq
	if err := c.ShouldBind(&req); err != nil {
		h.log.Warn("login validation failed", zap.Error(err), zap.String("remote_addr", c.ClientIP()))
		api.ValidationFailed(c, err)
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	h.log.Info("user login successful", zap.String("user_id", res.User.ID), zap.String("remote_addr", c.ClientIP()))
	api.OK(c, http.StatusOK, "User logged in successfully", dto.AuthRes{User: dto.NewUserRes(res.User), Token: res.Token})
}

// Profile は認証済みユーザーの情報を返します。
func (h *AuthHandler) Profile(c *gin.Context) {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok {
		api.Abort(c, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	user, err := h.auth.Profile(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, "profile", err)
		return
	}
	api.OK(c, http.StatusOK, "User profile retrieved successfully", dto.ProfileRes{User: dto.NewUserRes(*user)})
}

// Logout はサーバー側では何もしません。トークンはクライアント側で破棄されます。
func (h *AuthHandler) Logout(c *gin.Context) {
	api.OK(c, http.StatusOK, "User logged out successfully", nil)
}

// fail はユースケースのエラーをHTTPレスポンスに変換します。
// ユーザー列挙攻撃を防止するため、認証失敗の理由は区別しません。
func (h *AuthHandler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, usecase.ErrEmailAlreadyExists):
		h.log.Warn(op+" failed", zap.Error(err), zap.String("remote_addr", c.ClientIP()))
		api.Abort(c, http.StatusBadRequest, "User with this email already exists", nil)
	case errors.Is(err, usecase.ErrInvalidCredentials):
		h.log.Warn(op+" failed", zap.Error(err), zap.String("remote_addr", c.ClientIP()))
		api.Abort(c, http.StatusUnauthorized, "Invalid credentials", nil)
	case errors.Is(err, usecase.ErrInvalidPassword):
		api.Abort(c, http.StatusBadRequest, api.MessageValidationError,
			[]api.FieldError{{Field: "password", Message: err.Error()}})
	case errors.Is(err, usecase.ErrMediaUploadFailed):
		h.log.Error(op+" failed", zap.Error(err))
		api.Abort(c, http.StatusInternalServerError, "Failed to upload profile picture", nil)
	case errors.Is(err, usecase.ErrUserNotFound):
		api.Abort(c, http.StatusNotFound, "User not found", nil)
	default:
		h.log.Error(op+" failed", zap.Error(err))
		api.Internal(c, err)
	}
}

// readProfilePic はmultipartリクエストから画像を読み込み、形式とサイズを検証します。
// 画像が添付されていない場合は nil を返します。
func readProfilePic(c *gin.Context) (*usecase.Upload, error) {
	if c.ContentType() != binding.MIMEMultipartPOSTForm {
		return nil, nil
	}
	fh, err := c.FormFile(profilePicField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", profilePicField, err)
	}
	if fh.Size > media.MaxImageSize {
		return nil, media.ErrImageTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", profilePicField, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, media.MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", profilePicField, err)
	}
	contentType, err := media.DetectImage(data)
	if err != nil {
		return nil, err
	}
	return &usecase.Upload{Data: data, ContentType: contentType}, nil
}
