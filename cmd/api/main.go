package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/auroai/auroai-api/docs" // Importa a documentação gerada
	"github.com/auroai/auroai-api/internal/automation"
	"github.com/auroai/auroai-api/internal/billing"
	"github.com/auroai/auroai-api/internal/config"
	httphandler "github.com/auroai/auroai-api/internal/handler/http"
	"github.com/auroai/auroai-api/internal/identity"
	"github.com/auroai/auroai-api/internal/repository"
	"github.com/auroai/auroai-api/internal/service"
)

// @title           AuroAI API
// @version         1.0
// @description     API de assinaturas e conexão de WhatsApp do AuroAI.
//
// @host      localhost:8080
// @BasePath  /api
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// --- 1. LOGGER ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("🚀 Iniciando a API do AuroAI...")

	// --- 2. CONFIGURAÇÃO ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuração inválida", "error", err)
		os.Exit(1)
	}

	// --- 3. BANCO DE DADOS ---
	db, err := initDB(cfg.DatabasePath)
	if err != nil {
		slog.Error("Erro ao inicializar o banco de dados", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("💾 Banco de dados pronto", "path", cfg.DatabasePath)

	// --- 4. INJEÇÃO DE DEPENDÊNCIAS (WIRING) ---
	// DB -> Repository -> Services -> Handler
	profileRepo := repository.NewSQLiteRepository(db)

	billingClient := billing.NewClient(cfg.Stripe.SecretKey)
	webhookVerifier := billing.NewWebhookVerifier(cfg.Stripe.WebhookSecret)

	tokenVerifier, err := identity.NewVerifier(cfg.Identity.JWTSecret, cfg.Identity.Audience)
	if err != nil {
		slog.Error("Erro ao montar o verificador de tokens", "error", err)
		os.Exit(1)
	}
	adminClient := identity.NewAdminClient(cfg.Identity.URL, cfg.Identity.ServiceRoleKey)

	automationClient := automation.NewClient(
		cfg.Automation.ConnectURL,
		cfg.Automation.VerifyURL,
		cfg.Automation.DisconnectURL,
	)

	subscriptionService := service.NewSubscriptionService(profileRepo, billingClient, adminClient)
	checkoutService := service.NewCheckoutService(billingClient, cfg.SiteURL)
	whatsappService := service.NewWhatsAppService(profileRepo, automationClient)

	handler := httphandler.NewHandler(subscriptionService, checkoutService, whatsappService, tokenVerifier, webhookVerifier)
	slog.Info("Camadas de repositório, serviço e handler inicializadas")

	// --- 5. ROTEADOR ---
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(prometheusMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Mount("/api", handler.Routes())
	slog.Info("🛰️  Rotas registradas")

	// --- 6. SERVIDOR HTTP ---
	addr := ":" + cfg.Port
	slog.Info("✅ Servidor pronto para receber requisições", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Erro ao iniciar o servidor", "error", err)
		os.Exit(1)
	}
}

func initDB(filepath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", filepath)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if err := repository.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
