package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"member_backend/internal/feature/auth/domain/entity"
	"member_backend/internal/platform/identity"
	"member_backend/internal/platform/media"
)

// ProfilePicFolder はプロフィール画像の保存先フォルダです。
const ProfilePicFolder = "profile-pics"

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーをストレージに永続化し、IDとタイムスタンプを設定します。
	// 同じメールアドレスのユーザーが既に存在する場合、ErrEmailAlreadyExists を返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail は正規化済みメールアドレスに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFound を返します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID は指定されたIDに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFound を返します。
	FindByID(ctx context.Context, id string) (*entity.User, error)
}

// TokenIssuer はアクセストークン発行のインターフェースを定義します。
type TokenIssuer interface {
	IssueToken(userID string) (string, error)
}

// MediaStore はプロフィール画像の保存先を抽象化します。
type MediaStore interface {
	Upload(ctx context.Context, data []byte, folder, contentType string) (media.Object, error)
	Delete(ctx context.Context, publicID string) error
}

// Upload はアップロードされた画像データです。
type Upload struct {
	Data        []byte
	ContentType string
}

// SignupInput はユーザー登録の入力です。
type SignupInput struct {
	Name       string
	Email      string
	Password   string
	ProfilePic *Upload
}

// AuthResult は認証成功時に返されるユーザーとトークンです。User はパスワードハッシュを含みません。
type AuthResult struct {
	User  entity.User
	Token string
}

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	users  UserRepository
	creds  *CredentialStore
	tokens TokenIssuer
	media  MediaStore
	log    *zap.Logger
	tracer trace.Tracer
}

// Option はauthUsecaseの設定を変更します。
type Option func(*authUsecase)

// WithBcryptCost はパスワードハッシュのコストを設定します。
func WithBcryptCost(cost int) Option {
	return func(u *authUsecase) { u.creds = NewCredentialStore(u.users, cost) }
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
func NewAuthUsecase(users UserRepository, tokens TokenIssuer, store MediaStore, log *zap.Logger, opts ...Option) *authUsecase {
	u := &authUsecase{
		users:  users,
		creds:  NewCredentialStore(users, 0),
		tokens: tokens,
		media:  store,
		log:    log,
		tracer: otel.Tracer("member_backend/auth"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Signup は新規ユーザーを登録し、トークンを発行します。
// 画像が指定された場合はユーザーを保存する前にアップロードし、失敗時はユーザーを作成しません。
func (u *authUsecase) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	ctx, span := u.tracer.Start(ctx, "auth.signup",
		trace.WithAttributes(attribute.Bool("profile_pic", in.ProfilePic != nil)))
	defer span.End()

	email := entity.NormalizeEmail(in.Email)
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	// 事前の重複チェック（同時登録はユニーク制約で検出）
	if _, err := u.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	pic := entity.DefaultProfilePic()
	uploaded := false
	if in.ProfilePic != nil {
		obj, err := u.media.Upload(ctx, in.ProfilePic.Data, ProfilePicFolder, in.ProfilePic.ContentType)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: %w", ErrMediaUploadFailed, err)
		}
		pic = entity.ProfilePic{URL: obj.URL, PublicID: obj.PublicID}
		uploaded = true
	}

	user, err := u.creds.RegisterCredential(ctx, email, in.Password, strings.TrimSpace(in.Name), pic)
	if err != nil {
		if uploaded {
			u.discardMedia(ctx, pic.PublicID)
		}
		return nil, err
	}

	return u.issue(user)
}

// Login はユーザーを認証し、成功時にトークンを返します。
func (u *authUsecase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := u.tracer.Start(ctx, "auth.login")
	defer span.End()

	user, err := u.creds.VerifyCredential(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return u.issue(user)
}

// Profile は指定ユーザーの情報をパスワードハッシュなしで返します。
func (u *authUsecase) Profile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sanitized := user.Sanitized()
	return &sanitized, nil
}

// ResolveIdentity はトークンのsubjectを現存するユーザーのIdentityに解決します。
func (u *authUsecase) ResolveIdentity(ctx context.Context, userID string) (identity.Identity, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return identity.Identity{}, identity.ErrNotFound
		}
		return identity.Identity{}, err
	}
	return identity.Identity{UserID: user.ID, Email: user.Email, Name: user.Name}, nil
}

func (u *authUsecase) issue(user *entity.User) (*AuthResult, error) {
	token, err := u.tokens.IssueToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{User: user.Sanitized(), Token: token}, nil
}

// discardMedia はユーザー作成に失敗した際にアップロード済み画像を削除します。
// 削除に失敗しても登録エラーを優先し、ログのみ残します。
func (u *authUsecase) discardMedia(ctx context.Context, publicID string) {
	if err := u.media.Delete(ctx, publicID); err != nil {
		u.log.Warn("failed to delete orphaned profile picture", zap.String("public_id", publicID), zap.Error(err))
	}
}
