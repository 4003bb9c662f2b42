package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dairy-collection-backend/internal/events"
	handler "dairy-collection-backend/internal/handlers"
	"dairy-collection-backend/internal/repository"
	"dairy-collection-backend/internal/services/amcu"
	"dairy-collection-backend/internal/services/ledger"
	"dairy-collection-backend/internal/services/rates"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, log *zap.Logger) {
	customerRepo := repository.NewCustomerRepository(db)
	rateCardRepo := repository.NewRateCardRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	advanceRepo := repository.NewAdvanceRepository(db)

	bus := events.NewBus()
	engine := rates.NewEngine(rateCardRepo, settingRepo, log)
	amcuSvc := amcu.NewService(customerRepo, entryRepo, engine, bus, log)
	ledgerSvc := ledger.NewService(entryRepo, paymentRepo, advanceRepo, customerRepo, log)

	customerHandler := handler.NewCustomerHandler(customerRepo, ledgerSvc)
	rateCardHandler := handler.NewRateCardHandler(rateCardRepo, settingRepo, engine)
	entryHandler := handler.NewEntryHandler(entryRepo, amcuSvc, engine)
	paymentHandler := handler.NewPaymentHandler(paymentRepo, ledgerSvc)
	advanceHandler := handler.NewAdvanceHandler(advanceRepo, customerRepo)
	amcuHandler := handler.NewAmcuHandler(amcuSvc, bus, log)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	customers := api.Group("/customers")
	customers.GET("", customerHandler.List)
	customers.POST("", customerHandler.Create)
	customers.GET("/:id", customerHandler.Get)
	customers.PUT("/:id", customerHandler.Update)
	customers.DELETE("/:id", customerHandler.Deactivate)
	customers.GET("/:id/passbook", customerHandler.Passbook)

	rateCards := api.Group("/rate-cards")
	rateCards.GET("", rateCardHandler.List)
	rateCards.POST("", rateCardHandler.Create)
	rateCards.PUT("/:id", rateCardHandler.Update)
	rateCards.DELETE("/:id", rateCardHandler.Delete)
	rateCards.POST("/preview", rateCardHandler.Preview)
	rateCards.POST("/invalidate-cache", rateCardHandler.InvalidateCache)

	api.POST("/settings", rateCardHandler.SetSetting)

	entries := api.Group("/entries")
	entries.GET("", entryHandler.List)
	entries.GET("/today", entryHandler.TodayStats)
	entries.POST("", entryHandler.CreateManual)
	entries.PUT("/:id", entryHandler.Update)
	entries.DELETE("/:id", entryHandler.Delete)

	payments := api.Group("/payments")
	payments.GET("", paymentHandler.List)
	payments.POST("", paymentHandler.Create)
	payments.PUT("/:id", paymentHandler.Update)
	payments.DELETE("/:id", paymentHandler.Delete)

	advances := api.Group("/advances")
	advances.GET("", advanceHandler.List)
	advances.POST("", advanceHandler.Create)
	advances.PUT("/:id", advanceHandler.Update)
	advances.DELETE("/:id", advanceHandler.Delete)

	amcuGroup := api.Group("/amcu")
	amcuGroup.POST("/feed", amcuHandler.Feed)
	amcuGroup.POST("/simulate", amcuHandler.Simulate)
	amcuGroup.GET("/logs", amcuHandler.Logs)
	amcuGroup.GET("/events", amcuHandler.Events)
}
