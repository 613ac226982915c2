package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"volunteer-hub/config"
	"volunteer-hub/internal/api/handler"
	"volunteer-hub/internal/service"
	"volunteer-hub/pkg/jwt"
)

// 仅校验路由表与鉴权链路，请求在到达 Service 前即被拦截
func TestSetup_AuthChain(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.MaxBodyBytes = 1 << 20
	cfg.Server.CORS.AllowOrigins = []string{"http://localhost:5173"}
	cfg.Auth = config.AuthConfig{JWTSecret: "router-test-secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour}

	mgr := jwt.NewManager(&cfg.Auth)
	engine := Setup(cfg, handler.NewHandler(cfg, &service.Service{}), Deps{JWT: mgr}, zap.NewNop())

	student, _ := mgr.GenerateAccessToken("u-1", "STUDENT")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"健康检查", http.MethodGet, "/health", "", http.StatusOK},
		{"未登录创建活动", http.MethodPost, "/api/v1/activities", "", http.StatusUnauthorized},
		{"学生创建活动", http.MethodPost, "/api/v1/activities", student, http.StatusForbidden},
		{"学生查看统计", http.MethodGet, "/api/v1/stats/overview", student, http.StatusForbidden},
		{"学生查看参与者", http.MethodGet, "/api/v1/activities/2f6c1a8e-4b1d-4c6a-9a57-1f1f7c1b2d3e/participants", student, http.StatusForbidden},
		{"未登录报名", http.MethodPost, "/api/v1/activities/2f6c1a8e-4b1d-4c6a-9a57-1f1f7c1b2d3e/join", "", http.StatusUnauthorized},
		{"未登录查看通知", http.MethodGet, "/api/v1/notifications", "", http.StatusUnauthorized},
		{"非法活动 ID", http.MethodGet, "/api/v1/activities/not-a-uuid", "", http.StatusBadRequest},
		{"未知路由", http.MethodGet, "/api/v1/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("%s %s: 期望 %d，实际 %d body=%s", tt.method, tt.path, tt.status, w.Code, w.Body.String())
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("响应应携带 X-Request-ID")
			}
		})
	}
}

func TestSetup_Preflight(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.MaxBodyBytes = 1 << 20
	cfg.Server.CORS.AllowOrigins = []string{"http://localhost:5173"}
	cfg.Auth = config.AuthConfig{JWTSecret: "router-test-secret", AccessTokenTTL: time.Minute}

	engine := Setup(cfg, handler.NewHandler(cfg, &service.Service{}), Deps{JWT: jwt.NewManager(&cfg.Auth)}, zap.NewNop())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/activities", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("预检请求期望 204，实际 %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("预检响应缺少 CORS 头")
	}
}
