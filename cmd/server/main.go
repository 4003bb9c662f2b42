package main

import (
	"time"

	"dairy-collection-backend/internal/config"
	"dairy-collection-backend/internal/models"
	"dairy-collection-backend/internal/routes"
	"dairy-collection-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	log := logger.Must(logger.New())
	defer log.Sync()

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, relying on system env")
	}

	db := config.InitDB()

	db.AutoMigrate(
		&models.Customer{},
		&models.RateCard{},
		&models.Setting{},
		&models.MilkEntry{},
		&models.Payment{},
		&models.Advance{},
		&models.AmcuLog{},
	)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, log)

	addr := ":" + config.Port()
	log.Info("starting server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
