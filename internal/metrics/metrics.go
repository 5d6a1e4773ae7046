package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPリクエスト（method, path, code）
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accounts_http_requests_total",
		Help: "Total HTTP requests by method, route and status.",
	}, []string{"method", "path", "code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "accounts_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// ログイン結果（success / invalid_credentials / disabled / error）
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accounts_login_attempts_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	TokenRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accounts_token_refresh_total",
		Help: "Refresh token rotations by result.",
	}, []string{"result"})

	PasswordResetTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accounts_password_reset_total",
		Help: "Password reset requests and confirmations by step and result.",
	}, []string{"step", "result"})
)
