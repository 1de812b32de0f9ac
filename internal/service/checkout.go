package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/auroai/auroai-api/internal/billing"
)

// Erros de negócio do checkout.
var (
	ErrPriceObrigatorio     = errors.New("priceId é obrigatório")
	ErrFormatoPriceInvalido = errors.New("priceId com formato inválido")
	ErrPriceInativo         = errors.New("price não está ativo na stripe")
)

// CheckoutService cria sessões de checkout na Stripe para o usuário
// autenticado assinar um plano.
type CheckoutService struct {
	billing BillingClient
	siteURL string
}

// NewCheckoutService cria uma nova instância do CheckoutService. siteURL é a
// base dos redirects de sucesso/cancelamento.
func NewCheckoutService(billing BillingClient, siteURL string) *CheckoutService {
	return &CheckoutService{
		billing: billing,
		siteURL: strings.TrimRight(siteURL, "/"),
	}
}

// CreateCheckout valida o price e abre a sessão de checkout, retornando a URL
// hospedada pela Stripe.
//
// Diferente da reconciliação, que aceita um price desconhecido em modo
// fail-open, aqui a validação é rigorosa: um checkout contra um price inativo
// precisa falhar alto, porque dinheiro está prestes a circular.
func (s *CheckoutService) CreateCheckout(ctx context.Context, userID, email, priceID string) (string, error) {
	if priceID == "" {
		return "", ErrPriceObrigatorio
	}
	// Checagem local de formato, antes de qualquer chamada de rede.
	if !strings.HasPrefix(priceID, "price_") {
		return "", ErrFormatoPriceInvalido
	}

	price, err := s.billing.RetrievePrice(ctx, priceID)
	if err != nil {
		return "", fmt.Errorf("validação do price na stripe falhou: %w", err)
	}
	if !price.Active {
		return "", ErrPriceInativo
	}

	customerID, err := s.billing.FindCustomerByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if customerID == "" {
		slog.Info("cliente inexistente na stripe, será criado durante o checkout", "email", email)
	}

	// O parâmetro payment no redirect dispara uma nova verificação de
	// assinatura no dashboard, o que cobre webhooks atrasados ou perdidos.
	sess, err := s.billing.CreateCheckoutSession(ctx, billing.CheckoutParams{
		CustomerID: customerID,
		Email:      email,
		PriceID:    priceID,
		UserID:     userID,
		SuccessURL: s.siteURL + "/planos?payment=success",
		CancelURL:  s.siteURL + "/planos?payment=canceled",
	})
	if err != nil {
		return "", err
	}

	slog.Info("sessão de checkout criada", "session_id", sess.ID, "user_id", userID, "price_id", priceID)
	return sess.URL, nil
}
