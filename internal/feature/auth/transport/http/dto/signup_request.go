package dto

// SignupReq は/signupエンドポイントのリクエストを表します。
// JSONとmultipart/form-dataの両方を受け付けます（画像はフォームの profilePic フィールド）。
type SignupReq struct {
	Name     string `json:"name" form:"name" binding:"required,max=100"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=6,max=72"`
}
