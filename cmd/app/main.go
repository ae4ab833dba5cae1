package main

import (
	"context"
	"fmt"
	"log"

	"github.com/waste3d/gameplatform-api/services/progress-service/config"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/application/usecase"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/client"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/domain"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/infrastructure/cache"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/infrastructure/repository"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/infrastructure/security"
	"github.com/waste3d/gameplatform-api/services/progress-service/internal/middleware"
	handlers "github.com/waste3d/gameplatform-api/services/progress-service/internal/transport/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// 1. Загрузка конфига
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Подключение к БД
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	// 3. Миграции
	log.Println("Running migrations...")
	if err := db.AutoMigrate(&domain.LessonProgress{}, &domain.CourseProgress{}); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	// 4. Инициализация слоев
	lessonRepo := repository.NewLessonProgressRepository(db)
	courseRepo := repository.NewCourseProgressRepository(db)
	progressCache := cache.NewProgressCache(rdb)
	catalogClient := client.NewCatalogClient(cfg.CourseSvcUrl, rdb)

	progressUC := usecase.NewProgressUseCase(db, lessonRepo, courseRepo, progressCache)
	progressHandler := handlers.NewProgressHandler(progressUC, catalogClient)

	tokenManager := security.NewTokenManager(cfg.JWTAccessSecret)
	limiter := middleware.NewRateLimiter(rdb)

	// 5. Запуск HTTP сервера
	r := handlers.NewRouter(progressHandler, limiter, tokenManager, cfg.AllowedOrigins)

	log.Printf("Progress Service running on %s", cfg.HTTPPort)
	if err := r.Run(cfg.HTTPPort); err != nil {
		log.Fatalf("Failed to serve: %v", err)
	}
}
