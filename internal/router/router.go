package router

import (
	"time"

	"ctacte/internal/config"
	"ctacte/internal/handler"
	"ctacte/internal/middleware"
	"ctacte/internal/repository"
	"ctacte/internal/service"
	"ctacte/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	clienteRepo := repository.NewClienteRepository(db)
	cuentaRepo := repository.NewCuentaRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	cuentaSvc := service.NewCuentaService(cuentaRepo)
	clienteSvc := service.NewClienteService(clienteRepo, cuentaRepo)
	precioSvc := service.NewPrecioService()

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	pagoSvc := service.NewPagoService(cuentaSvc, cuentaRepo, dispatcher)
	ajusteSvc := service.NewAjusteService(cuentaSvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	clientesH := handler.NewClientesHandler(clienteSvc)
	cuentasH := handler.NewCuentasHandler(cuentaSvc, pagoSvc, ajusteSvc)
	preciosH := handler.NewPreciosHandler(precioSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cajero, supervisor, administrador — declared per-endpoint
		v1.POST("/auth/usuarios", middleware.RequireRole("administrador"), authH.CrearUsuario)

		// Clientes — lectura para todos los roles, escritura solo administrador
		v1.GET("/clientes", middleware.RequireRole("cajero", "supervisor", "administrador"), clientesH.Listar)
		v1.GET("/clientes/:id", middleware.RequireRole("cajero", "supervisor", "administrador"), clientesH.Obtener)
		clientes := v1.Group("/clientes", middleware.RequireRole("administrador"))
		{
			clientes.POST("", clientesH.Crear)
			clientes.PUT("/:id", clientesH.Actualizar)
		}

		// Cuentas corrientes
		cuentas := v1.Group("/cuentas")
		{
			cuentas.GET("", middleware.RequireRole("cajero", "supervisor", "administrador"), cuentasH.ListarCuentas)
			cuentas.POST("/venta", middleware.RequireRole("cajero", "supervisor", "administrador"), cuentasH.RegistrarVenta)
			cuentas.GET("/:cliente_id", middleware.RequireRole("cajero", "supervisor", "administrador"), cuentasH.ObtenerCuenta)
			cuentas.GET("/:cliente_id/movimientos", middleware.RequireRole("cajero", "supervisor", "administrador"), cuentasH.ListarMovimientos)
			cuentas.POST("/:cliente_id/pagos", middleware.RequireRole("cajero", "supervisor", "administrador"), cuentasH.RegistrarPago)
			cuentas.POST("/:cliente_id/ajustes", middleware.RequireRole("supervisor", "administrador"), cuentasH.RegistrarAjuste)
			// La anulación deja rastro doble en el historial — solo supervisores
			cuentas.POST("/movimientos/:id/anular", middleware.RequireRole("supervisor", "administrador"), cuentasH.AnularMovimiento)
		}

		v1.POST("/precios/calcular", middleware.RequireRole("supervisor", "administrador"), preciosH.Calcular)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
