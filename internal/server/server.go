package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"formsync-backend/internal/auth"
	"formsync-backend/internal/config"
	"formsync-backend/internal/handler"
	"formsync-backend/internal/model"
	"formsync-backend/internal/presence"
	"formsync-backend/internal/store"
)

// Server Fiber 서버 래퍼
type Server struct {
	app               *fiber.App
	cfg               *config.Config
	db                *gorm.DB
	formStore         *store.FormStore
	authHandler       *handler.AuthHandler
	formHandler       *handler.FormHandler
	submissionHandler *handler.SubmissionHandler
	editorWSHandler   *handler.EditorWSHandler
	healthHandler     *handler.HealthHandler
	jwtManager        *auth.JWTManager
}

// New 새 서버 인스턴스 생성 (rdb는 nil 가능 - 단일 노드 모드)
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "FormSync Collaboration Backend",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             5 * 1024 * 1024, // 5MB - 폼 스키마와 제출 데이터는 작음
		DisableStartupMessage: false,
	})

	// Auth 초기화
	jwtManager := auth.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)
	googleAuth := auth.NewGoogleAuthenticator(cfg.Auth.GoogleClientID)
	authHandler := handler.NewAuthHandler(db, jwtManager, googleAuth, cfg.Auth.SecureCookie)

	// 실시간 채널 초기화 - Redis 없으면 프로세스 내 전송으로 폴백
	var notifier *store.ChangeNotifier
	var transport presence.Transport
	if rdb != nil {
		notifier = store.NewChangeNotifier(rdb)
		transport = presence.NewRedisTransport(rdb)
		log.Println("✅ Redis realtime channels enabled (presence + change feed)")
	} else {
		transport = presence.NewLocalTransport()
		log.Println("ℹ️ Redis not configured, using in-process realtime channels (single node only)")
	}

	formStore := store.NewFormStore(db, notifier)
	formHandler := handler.NewFormHandler(db, formStore)
	submissionHandler := handler.NewSubmissionHandler(db, formStore)
	editorWSHandler := handler.NewEditorWSHandler(formStore, transport, cfg.Collab)
	healthHandler := handler.NewHealthHandler(db, rdb)

	return &Server{
		app:               app,
		cfg:               cfg,
		db:                db,
		formStore:         formStore,
		authHandler:       authHandler,
		formHandler:       formHandler,
		submissionHandler: submissionHandler,
		editorWSHandler:   editorWSHandler,
		healthHandler:     healthHandler,
		jwtManager:        jwtManager,
	}
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Rate Limiter 설정 (인증 엔드포인트용 - Brute Force 방지)
	authLimiter := limiter.New(limiter.Config{
		Max:        10,              // 최대 10회
		Expiration: 1 * time.Minute, // 1분당
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() // IP 기반 제한
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	// Auth 라우트 그룹
	authGroup := s.app.Group("/auth")
	authGroup.Post("/google", authLimiter, s.authHandler.GoogleLogin)
	authGroup.Post("/refresh", authLimiter, s.authHandler.RefreshToken)
	authGroup.Post("/logout", auth.AuthMiddleware(s.jwtManager), s.authHandler.Logout)
	authGroup.Get("/me", auth.AuthMiddleware(s.jwtManager), s.authHandler.GetMe)

	// Form 라우트 그룹 (인증 필요)
	formGroup := s.app.Group("/api/forms", auth.AuthMiddleware(s.jwtManager))
	formGroup.Post("/", s.formHandler.CreateForm)
	formGroup.Get("/", s.formHandler.GetMyForms)
	formGroup.Get("/:id", s.formHandler.GetForm)
	formGroup.Put("/:id", s.formHandler.UpdateForm)
	formGroup.Put("/:id/visibility", s.formHandler.SetVisibility)
	formGroup.Delete("/:id", s.formHandler.DeleteForm)
	formGroup.Post("/:id/share", s.formHandler.GenerateShareToken)
	formGroup.Delete("/:id/share", s.formHandler.DisableCollaboration)
	formGroup.Get("/:id/submissions", s.submissionHandler.ListSubmissions)

	// 공개 라우트 (제출 페이지용, 인증 불필요)
	publicGroup := s.app.Group("/api/public/forms")
	publicGroup.Get("/:id", s.formHandler.GetPublicForm)
	publicGroup.Post("/:id/visibility", s.formHandler.EvaluateVisibility)
	publicGroup.Post("/:id/submit", s.submissionHandler.Submit)

	// WebSocket 폼 편집 엔드포인트
	s.app.Get("/ws/editor/:formId", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		// 쿠키에서 JWT 토큰 추출
		accessToken := c.Cookies("access_token")
		if accessToken == "" {
			// WebSocket은 JSON 응답 대신 연결 거부
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		// JWT 검증
		claims, err := s.jwtManager.ValidateAccessToken(accessToken)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		formID := c.Params("formId")

		// 소유자 또는 공유 토큰 보유자만 편집 세션 허용
		var form model.Form
		if err := s.db.First(&form, "id = ?", formID).Error; err != nil {
			return c.SendStatus(fiber.StatusNotFound)
		}
		if form.OwnerID != claims.UserID {
			token := c.Query("token")
			if !form.AllowCollaboration || form.ShareToken == nil || token == "" || *form.ShareToken != token {
				return c.SendStatus(fiber.StatusForbidden)
			}
		}

		c.Locals("formId", formID)
		c.Locals("userId", claims.UserID)
		c.Locals("nickname", claims.Nickname)

		return c.Next()
	}, websocket.New(s.editorWSHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start 서버 시작 (Graceful Shutdown 지원)
func (s *Server) Start() error {
	// Graceful Shutdown 설정
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("🛑 Shutting down server...")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("🚀 FormSync Collaboration Backend starting on %s", s.cfg.Server.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/editor/:formId", s.cfg.Server.Port)

	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown 서버 종료
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
