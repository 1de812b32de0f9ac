// Package config centraliza a configuração da API, lida do ambiente uma única
// vez na inicialização. Os serviços recebem os valores pelos construtores, em
// vez de reler variáveis de ambiente a cada requisição.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	// Carrega o arquivo .env automaticamente, se existir.
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port         string
	DatabasePath string

	// URL pública do site, usada nos redirects de sucesso/cancelamento do checkout.
	SiteURL string

	Stripe     StripeConfig
	Identity   IdentityConfig
	Automation AutomationConfig
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// IdentityConfig aponta para o provedor de identidade que emite os tokens de
// acesso do dashboard e mantém o cadastro de contas.
type IdentityConfig struct {
	URL            string
	ServiceRoleKey string
	JWTSecret      string
	Audience       string
}

// AutomationConfig guarda as URLs dos webhooks do motor de automação que faz o
// pareamento do WhatsApp (envio de código, validação e desconexão).
type AutomationConfig struct {
	ConnectURL    string
	VerifyURL     string
	DisconnectURL string
}

// Load monta a configuração a partir do ambiente e valida o que é obrigatório.
// Segredos ausentes são erro fatal: sem eles nenhuma reconciliação funciona.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         envOrDefault("PORT", "8080"),
		DatabasePath: envOrDefault("DATABASE_PATH", "./auroai.db"),
		SiteURL:      strings.TrimRight(envOrDefault("SITE_URL", "https://auroai.site"), "/"),
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
		Identity: IdentityConfig{
			URL:            strings.TrimRight(os.Getenv("IDP_URL"), "/"),
			ServiceRoleKey: os.Getenv("IDP_SERVICE_ROLE_KEY"),
			JWTSecret:      os.Getenv("IDP_JWT_SECRET"),
			Audience:       envOrDefault("IDP_JWT_AUDIENCE", "authenticated"),
		},
		Automation: AutomationConfig{
			ConnectURL:    os.Getenv("AUTOMATION_CONNECT_URL"),
			VerifyURL:     os.Getenv("AUTOMATION_VERIFY_URL"),
			DisconnectURL: os.Getenv("AUTOMATION_DISCONNECT_URL"),
		},
	}

	if cfg.Stripe.SecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY não configurada")
	}
	if !strings.HasPrefix(cfg.Stripe.SecretKey, "sk_") {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY com formato inválido (prefixo %q)", prefix(cfg.Stripe.SecretKey, 3))
	}
	if cfg.Stripe.WebhookSecret == "" {
		return nil, errors.New("STRIPE_WEBHOOK_SECRET não configurada")
	}
	if cfg.Identity.JWTSecret == "" {
		return nil, errors.New("IDP_JWT_SECRET não configurada")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
