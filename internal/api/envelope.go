// Package api はすべてのエンドポイントで共通のJSONレスポンス形式を定義します。
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextExposeErrors は内部エラーの詳細をレスポンスに含めるかどうかを保持するコンテキストキーです。
const ContextExposeErrors = "api.exposeErrors"

// MessageServerError は内部エラー時のメッセージです。
const MessageServerError = "Server Error"

// Response は全レスポンス共通のエンベロープです。
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// OK は成功レスポンスを書き込みます。
func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

// Fail は失敗レスポンスを書き込みます。detail が nil の場合 error フィールドは省略されます。
func Fail(c *gin.Context, status int, message string, detail any) {
	c.JSON(status, Response{Success: false, Message: message, Error: detail})
}

// Abort は失敗レスポンスを書き込み、後続のハンドラーを中断します。
func Abort(c *gin.Context, status int, message string, detail any) {
	c.AbortWithStatusJSON(status, Response{Success: false, Message: message, Error: detail})
}

// Internal は500レスポンスを書き込みます。
// エラー詳細は ExposeErrors ミドルウェアで許可された場合のみ含めます。
func Internal(c *gin.Context, err error) {
	var detail any
	if err != nil && c.GetBool(ContextExposeErrors) {
		detail = err.Error()
	}
	Abort(c, http.StatusInternalServerError, MessageServerError, detail)
}

// ExposeErrors は内部エラー詳細の公開可否をリクエストコンテキストに設定するミドルウェアを返します。
func ExposeErrors(expose bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextExposeErrors, expose)
		c.Next()
	}
}

// NoRoute は未定義ルートに対する404ハンドラーです。
func NoRoute(c *gin.Context) {
	Fail(c, http.StatusNotFound, "Not Found - "+c.Request.URL.Path, nil)
}
