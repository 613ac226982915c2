package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"volunteer-hub/config"
	"volunteer-hub/internal/api/handler"
	"volunteer-hub/internal/api/middleware"
	"volunteer-hub/internal/api/router"
	"volunteer-hub/internal/repository"
	"volunteer-hub/internal/service"
	"volunteer-hub/pkg/database"
	"volunteer-hub/pkg/jwt"
	applogger "volunteer-hub/pkg/logger"
	"volunteer-hub/pkg/memstore"
	"volunteer-hub/pkg/oauth"
	"volunteer-hub/pkg/redis"
	"volunteer-hub/pkg/validate"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("VOLUNTEER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("google_login", cfg.OAuth.GoogleEnabled()),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	// 接口变量只在连接成功时赋值，下游以 nil 判断 Redis 是否可用
	var (
		rdb       *redis.Client
		states    service.StateStore
		blacklist service.TokenBlacklist
		checker   middleware.TokenChecker
		limiter   middleware.RateLimiter
	)
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流将不可用，OAuth state 改用进程内存储", zap.Error(err))
		rdb = nil
		states = memstore.NewStateStore(cfg.OAuth.StateTTL)
	} else {
		states, blacklist, checker, limiter = rdb, rdb, rdb, rdb
	}

	// 5. 初始化 JWT 管理器与第三方身份提供方
	jwtMgr := jwt.NewManager(&cfg.Auth)

	var idp service.IdentityProvider
	if cfg.OAuth.GoogleEnabled() {
		idp = oauth.NewGoogleProvider(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			cfg.Server.BaseURL+"/api/v1/auth/google/callback",
		)
	}

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, service.Deps{
		States:    states,
		Blacklist: blacklist,
		IdP:       idp,
	}, logger)
	h := handler.NewHandler(cfg, svc)

	// 7. 初始化路由
	if err := validate.Setup(); err != nil {
		logger.Fatal("初始化参数校验器失败", zap.Error(err))
	}
	engine := router.Setup(cfg, h, router.Deps{
		JWT:       jwtMgr,
		Blacklist: checker,
		Limiter:   limiter,
		DB:        db,
	}, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
