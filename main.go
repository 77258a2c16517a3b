package main

import (
	"context"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/discr/discr-api/config"
	"github.com/discr/discr-api/controllers"
	"github.com/discr/discr-api/middleware"
	"github.com/discr/discr-api/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// routeAuth holds the authentication middleware the router mounts
type routeAuth struct {
	required gin.HandlerFunc // valid bearer token needed
	optional gin.HandlerFunc // identifies the caller when a token is present
}

func main() {
	log.Println("Starting Discr API server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		if err := cfg.ValidatePayments(); err != nil {
			log.Fatalf("Invalid payment configuration: %v", err)
		}
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := config.AutoMigrate(config.GetDB()); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	initServices(cfg)

	router := setupRouter(cfg, routeAuth{
		required: middleware.EnsureValidToken(cfg),
		optional: middleware.OptionalToken(cfg),
	})

	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initServices wires the storage and payment backends. A missing backend is
// logged and the endpoints that need it answer with a configuration error.
func initServices(cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s3Service, err := services.InitS3Service(ctx)
	if err != nil {
		log.Printf("WARNING: S3 storage unavailable, photo uploads and sticker sheets are disabled: %v", err)
	} else {
		services.InitImageService(s3Service)
	}

	if _, err := services.InitPaymentService(); err != nil {
		log.Printf("WARNING: Stripe unavailable, sticker checkout is disabled: %v", err)
	}
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSAllowedOrigins) == 0 || slices.Contains(cfg.CORSAllowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
		corsConfig.AllowCredentials = true
	}
	return cors.New(corsConfig)
}

// setupRouter builds the full API route table
func setupRouter(cfg *config.Config, auth routeAuth) *gin.Engine {
	router := gin.Default()
	router.HandleMethodNotAllowed = true
	router.Use(corsMiddleware(cfg))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", auth.required, middleware.RequireScope("read:status"), databaseStatus)

		profiles := v1.Group("/profiles", auth.required)
		{
			profiles.POST("", controllers.CreateProfile)
			profiles.GET("/me", controllers.GetMyProfile)
			profiles.PUT("/me", controllers.UpdateMyProfile)
		}

		discs := v1.Group("/discs", auth.required)
		{
			discs.POST("", controllers.CreateDisc)
			discs.GET("", controllers.ListDiscs)
			discs.POST("/claim", controllers.ClaimDisc)
			discs.GET("/:id", controllers.GetDisc)
			discs.PUT("/:id", controllers.UpdateDisc)
			discs.DELETE("/:id", controllers.DeleteDisc)
			discs.POST("/:id/qr-code", controllers.AssignQRCode)
			discs.POST("/:id/photos", controllers.UploadDiscPhoto)
			discs.DELETE("/:id/photos/:photoId", controllers.DeleteDiscPhoto)
		}

		// Public: anyone holding the sticker can scan it
		v1.GET("/qr-codes/:code", auth.optional, controllers.GetQRCodeLookup)

		orders := v1.Group("/sticker-orders")
		{
			orders.POST("", auth.required, controllers.CreateStickerOrder)
			orders.GET("", auth.required, controllers.ListStickerOrders)
			orders.GET("/:id", auth.required, controllers.GetStickerOrder)
			orders.POST("/:id/qr-codes", controllers.GenerateOrderQRCodes)
		}

		// The printer authenticates with the per-order printer token in the body
		printer := v1.Group("/printer/orders")
		{
			printer.POST("/status", controllers.UpdateOrderStatus)
			printer.POST("/pdf", controllers.GenerateStickerPDF)
		}

		recoveries := v1.Group("/recoveries", auth.required)
		{
			recoveries.POST("", controllers.ReportFound)
			recoveries.GET("/:id", controllers.GetRecovery)
			recoveries.POST("/:id/abandon", controllers.AbandonDisc)
			recoveries.POST("/:id/recover", controllers.MarkRecovered)
		}

		// Stripe signs webhook deliveries; there is no bearer token
		v1.POST("/webhooks/stripe", controllers.StripeWebhook)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Discr API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	// Works on both postgres and sqlite
	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
