// Package http は外部サービス呼び出し用のHTTPクライアントを提供します。
package http

import (
	"net"
	"net/http"
	"time"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
)

// DefaultTimeout はタイムアウト未指定時のリクエスト全体のタイムアウトです。
const DefaultTimeout = 30 * time.Second

// NewHTTPClient はオブジェクトストレージなど外部サービス呼び出し用のHTTPクライアントを作成します。
//
// 設定:
//   - Proxy: 環境変数（HTTP_PROXYなど）が設定されている場合に使用
//   - Dialer.Timeout: TCP接続タイムアウト
//   - MaxIdleConns / MaxIdleConnsPerHost: 同一ホストへのアップロードで接続を再利用
//   - TLSHandshakeTimeout: HTTPSハンドシェイクの最大時間
//   - Client.Timeout: リクエスト全体のタイムアウト（0以下の場合は30秒）
//
// AWS SDKがAWS_CA_BUNDLEなどでトランスポートを組み替えられるよう、
// *http.Client ではなく BuildableClient を返します。
// http.DefaultClientにはタイムアウトがないため使用しないこと。
func NewHTTPClient(timeout time.Duration) *awshttp.BuildableClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return awshttp.NewBuildableClient().
		WithTimeout(timeout).
		WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = 5 * time.Second
			d.KeepAlive = 30 * time.Second
		}).
		WithTransportOptions(func(t *http.Transport) {
			t.Proxy = http.ProxyFromEnvironment
			t.MaxIdleConns = 100
			t.MaxIdleConnsPerHost = 16
			t.IdleConnTimeout = 90 * time.Second
			t.TLSHandshakeTimeout = 5 * time.Second
		})
}
