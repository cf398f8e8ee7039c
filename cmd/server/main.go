package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/wms/backend/internal/application/catalog"
	inventoryapp "github.com/wms/backend/internal/application/inventory"
	partnerapp "github.com/wms/backend/internal/application/partner"
	procurementapp "github.com/wms/backend/internal/application/procurement"
	"github.com/wms/backend/internal/infrastructure/auth"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/event"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/infrastructure/storage"
	"github.com/wms/backend/internal/infrastructure/telemetry"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/middleware"
	"github.com/wms/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting WMS Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize telemetry
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Database metrics (connection pool and query instrumentation)
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBMetricsEnabled {
		dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: cfg.Telemetry.SlowQueryThreshold,
		}, log)
		if err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		} else {
			defer dbMetrics.Stop()
			log.Info("Database metrics registered",
				zap.Duration("slow_query_threshold", cfg.Telemetry.SlowQueryThreshold),
			)
		}
	}

	// Initialize repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	purchaseOrderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	returnRequestRepo := persistence.NewGormReturnRequestRepository(db.DB)
	stockLevelRepo := persistence.NewGormStockLevelRepository(db.DB)
	stockMovementRepo := persistence.NewGormStockMovementRepository(db.DB)

	// Transaction scopes
	inventoryScope := persistence.NewGormInventoryTransactionScope(db.DB)
	procurementScope := persistence.NewGormProcurementTransactionScope(db.DB)

	// Initialize application services
	productService := catalogapp.NewProductService(productRepo)
	supplierService := partnerapp.NewSupplierService(supplierRepo)
	warehouseService := partnerapp.NewWarehouseService(warehouseRepo)
	ledgerService := inventoryapp.NewLedgerService(inventoryScope, stockLevelRepo, stockMovementRepo)
	purchaseOrderService := procurementapp.NewPurchaseOrderService(
		purchaseOrderRepo, supplierRepo, warehouseRepo, productRepo, procurementScope, ledgerService,
	)
	returnService := procurementapp.NewReturnService(
		returnRequestRepo, purchaseOrderRepo, procurementScope, ledgerService,
	)
	reconciliationService := procurementapp.NewReconciliationService(purchaseOrderRepo, returnRequestRepo)

	// Document store for generated order documents
	var documentStore procurementapp.DocumentStore
	switch cfg.Storage.Driver {
	case "s3":
		s3Store, err := storage.NewS3DocumentStore(context.Background(), &cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize S3 document store", zap.Error(err))
		}
		documentStore = s3Store
		log.Info("Document store initialized",
			zap.String("driver", "s3"),
			zap.String("bucket", cfg.Storage.Bucket),
		)
	default:
		localStore, err := storage.NewLocalDocumentStore(cfg.Storage.LocalDir)
		if err != nil {
			log.Fatal("Failed to initialize local document store", zap.Error(err))
		}
		documentStore = localStore
		log.Info("Document store initialized",
			zap.String("driver", "local"),
			zap.String("dir", cfg.Storage.LocalDir),
		)
	}
	purchaseOrderService.SetDocumentStore(documentStore)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	// Stock level changed -> low stock alerting
	lowStockHandler := inventoryapp.NewLowStockHandler(log, productRepo)
	eventBus.Subscribe(lowStockHandler)

	log.Info("Event handlers registered",
		zap.Strings("low_stock_events", lowStockHandler.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Inject event bus into services that publish events
	ledgerService.SetEventPublisher(eventBus)
	purchaseOrderService.SetEventPublisher(eventBus)
	returnService.SetEventPublisher(eventBus)

	// Business metrics (order, movement, and return activity)
	if cfg.Telemetry.Enabled {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:  meterProvider.Meter("wms.business"),
			Logger: log,
		})
		if err != nil {
			log.Warn("Failed to initialize business metrics", zap.Error(err))
		} else {
			defer businessMetrics.Stop()
			ledgerService.SetBusinessMetrics(businessMetrics)
			purchaseOrderService.SetBusinessMetrics(businessMetrics)
			returnService.SetBusinessMetrics(businessMetrics)
			log.Info("Business metrics enabled")
		}
	}

	// JWT service for API authentication
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(productService)
	supplierHandler := handler.NewSupplierHandler(supplierService)
	warehouseHandler := handler.NewWarehouseHandler(warehouseService)
	inventoryHandler := handler.NewInventoryHandler(ledgerService)
	purchaseOrderHandler := handler.NewPurchaseOrderHandler(purchaseOrderService, reconciliationService)
	purchaseReturnHandler := handler.NewPurchaseReturnHandler(returnService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Report JSON field names in binding errors
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Metrics - Record HTTP metrics
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. JWT - Authentication for API routes
	// 9. RateLimit - Per-client rate limiting
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// JWT authentication for API routes. Health and ping endpoints stay open.
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Per-client rate limiting, keyed by user ID once authenticated
	rateLimiter := middleware.NewRateLimiter(300, time.Minute)
	engine.Use(middleware.RateLimit(rateLimiter))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Catalog domain (products)
	catalogRoutes := router.NewDomainGroup("catalog", "/catalog")
	catalogRoutes.POST("/products", productHandler.Create)
	catalogRoutes.GET("/products", productHandler.List)
	catalogRoutes.GET("/products/:id", productHandler.GetByID)
	catalogRoutes.GET("/products/sku/:sku", productHandler.GetBySKU)
	catalogRoutes.PUT("/products/:id", productHandler.Update)
	catalogRoutes.DELETE("/products/:id", productHandler.Delete)
	catalogRoutes.POST("/products/:id/activate", productHandler.Activate)
	catalogRoutes.POST("/products/:id/deactivate", productHandler.Deactivate)
	catalogRoutes.POST("/products/:id/discontinue", productHandler.Discontinue)

	// Partner domain (suppliers, warehouses)
	partnerRoutes := router.NewDomainGroup("partner", "/partner")
	partnerRoutes.POST("/suppliers", supplierHandler.Create)
	partnerRoutes.GET("/suppliers", supplierHandler.List)
	partnerRoutes.GET("/suppliers/:id", supplierHandler.GetByID)
	partnerRoutes.GET("/suppliers/code/:code", supplierHandler.GetByCode)
	partnerRoutes.PUT("/suppliers/:id", supplierHandler.Update)
	partnerRoutes.DELETE("/suppliers/:id", supplierHandler.Delete)
	partnerRoutes.POST("/suppliers/:id/activate", supplierHandler.Activate)
	partnerRoutes.POST("/suppliers/:id/deactivate", supplierHandler.Deactivate)
	partnerRoutes.POST("/suppliers/:id/block", supplierHandler.Block)

	partnerRoutes.POST("/warehouses", warehouseHandler.Create)
	partnerRoutes.GET("/warehouses", warehouseHandler.List)
	partnerRoutes.GET("/warehouses/default", warehouseHandler.GetDefault)
	partnerRoutes.GET("/warehouses/:id", warehouseHandler.GetByID)
	partnerRoutes.PUT("/warehouses/:id", warehouseHandler.Update)
	partnerRoutes.DELETE("/warehouses/:id", warehouseHandler.Delete)
	partnerRoutes.POST("/warehouses/:id/enable", warehouseHandler.Enable)
	partnerRoutes.POST("/warehouses/:id/disable", warehouseHandler.Disable)
	partnerRoutes.POST("/warehouses/:id/set-default", warehouseHandler.SetDefault)

	// Procurement domain (purchase orders, returns)
	procurementRoutes := router.NewDomainGroup("procurement", "/procurement")
	procurementRoutes.POST("/purchase-orders", purchaseOrderHandler.Create)
	procurementRoutes.GET("/purchase-orders", purchaseOrderHandler.List)
	procurementRoutes.GET("/purchase-orders/stats/summary", purchaseOrderHandler.GetStatusSummary)
	procurementRoutes.GET("/purchase-orders/number/:order_number", purchaseOrderHandler.GetByOrderNumber)
	procurementRoutes.GET("/purchase-orders/:id", purchaseOrderHandler.GetByID)
	procurementRoutes.DELETE("/purchase-orders/:id", purchaseOrderHandler.Delete)
	procurementRoutes.POST("/purchase-orders/:id/items", purchaseOrderHandler.AddItem)
	procurementRoutes.PUT("/purchase-orders/:id/items/:item_id", purchaseOrderHandler.UpdateItem)
	procurementRoutes.DELETE("/purchase-orders/:id/items/:item_id", purchaseOrderHandler.RemoveItem)
	procurementRoutes.POST("/purchase-orders/:id/submit", purchaseOrderHandler.Submit)
	procurementRoutes.POST("/purchase-orders/:id/approve", purchaseOrderHandler.Approve)
	procurementRoutes.POST("/purchase-orders/:id/send", purchaseOrderHandler.SendToSupplier)
	procurementRoutes.PUT("/purchase-orders/:id/status", purchaseOrderHandler.UpdateStatus)
	procurementRoutes.POST("/purchase-orders/:id/receive", purchaseOrderHandler.Receive)
	procurementRoutes.POST("/purchase-orders/:id/cancel", purchaseOrderHandler.Cancel)
	procurementRoutes.GET("/purchase-orders/:id/reconciliation", purchaseOrderHandler.Reconcile)
	procurementRoutes.GET("/purchase-orders/:id/returns", purchaseReturnHandler.ListByPurchaseOrder)

	procurementRoutes.POST("/returns", purchaseReturnHandler.Create)
	procurementRoutes.GET("/returns", purchaseReturnHandler.List)
	procurementRoutes.GET("/returns/:id", purchaseReturnHandler.GetByID)
	procurementRoutes.POST("/returns/:id/approve", purchaseReturnHandler.Approve)
	procurementRoutes.POST("/returns/:id/reject", purchaseReturnHandler.Reject)
	procurementRoutes.POST("/returns/:id/receive", purchaseReturnHandler.Receive)
	procurementRoutes.POST("/returns/:id/refund", purchaseReturnHandler.Refund)
	procurementRoutes.POST("/returns/:id/cancel", purchaseReturnHandler.Cancel)

	// Inventory domain (stock ledger)
	inventoryRoutes := router.NewDomainGroup("inventory", "/inventory")
	inventoryRoutes.POST("/movements", inventoryHandler.PostMovement)
	inventoryRoutes.GET("/movements", inventoryHandler.ListMovements)
	inventoryRoutes.POST("/adjustments", inventoryHandler.AdjustStock)
	inventoryRoutes.GET("/stock-levels", inventoryHandler.ListStockLevels)
	inventoryRoutes.GET("/warehouses/:warehouse_id/products/:product_id", inventoryHandler.GetStockLevel)
	inventoryRoutes.GET("/warehouses/:warehouse_id/products/:product_id/ledger-check", inventoryHandler.CheckLedger)
	inventoryRoutes.GET("/products/:product_id/total", inventoryHandler.GetTotalOnHand)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	// Register all domain groups
	r.Register(catalogRoutes).
		Register(partnerRoutes).
		Register(procurementRoutes).
		Register(inventoryRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
