package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"formsync-backend/internal/config"
	"formsync-backend/internal/database"
	"formsync-backend/internal/server"
)

func main() {
	// 설정 로드
	cfg := config.Load()

	// 데이터베이스 연결
	db, err := database.ConnectDB()
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer database.Close()

	// Ping 테스트
	if err := database.Ping(); err != nil {
		log.Fatalf("❌ Database ping failed: %v", err)
	}
	log.Printf("✅ Database connected successfully")

	// DB 버전 확인
	var version string
	db.Raw("SELECT version()").Scan(&version)
	if len(version) > 50 {
		version = version[:50] + "..."
	}
	log.Printf("📦 PostgreSQL: %s", version)

	// Redis 연결 (실시간 채널용 - 없으면 단일 노드 모드)
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️ Redis ping failed: %v (falling back to in-process channels)", err)
			rdb.Close()
			rdb = nil
		} else {
			log.Printf("✅ Redis connected: %s", cfg.Redis.Addr)
			defer rdb.Close()
		}
		cancel()
	}

	// 서버 생성 및 설정
	srv := server.New(cfg, db, rdb)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// 서버 시작
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
