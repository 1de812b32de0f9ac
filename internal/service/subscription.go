// Package service contém a lógica de negócio: reconciliação de assinaturas,
// criação de checkout e o fluxo de pareamento do WhatsApp.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v78"

	"github.com/auroai/auroai-api/internal/billing"
	"github.com/auroai/auroai-api/internal/domain"
	"github.com/auroai/auroai-api/internal/identity"
	"github.com/auroai/auroai-api/internal/repository"
)

// Erros de negócio da reconciliação.
var (
	ErrPerfilNaoEncontrado = errors.New("perfil não encontrado")
)

// BillingClient é o subconjunto da API da Stripe que a reconciliação usa.
// O serviço depende da interface para que os testes injetem um fake.
type BillingClient interface {
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	ListActiveSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error)
	RetrieveSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	RetrieveCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	RetrievePrice(ctx context.Context, id string) (*stripe.Price, error)
	CreateCheckoutSession(ctx context.Context, p billing.CheckoutParams) (*stripe.CheckoutSession, error)
}

// IdentityLookup resolve contas a partir do email, usado pelo caminho do
// webhook, que só conhece o cliente de cobrança.
type IdentityLookup interface {
	FindUserIDByEmail(ctx context.Context, email string) (string, error)
}

// SubscriptionService é o coração da reconciliação: lê o estado atual da
// assinatura na Stripe e grava o resultado no perfil do usuário. Tanto a
// verificação síncrona (Reconcile) quanto o webhook (HandleWebhookEvent)
// derivam a escrita inteira de uma leitura fresca do provedor, então qualquer
// corrida entre os dois caminhos se corrige na reconciliação seguinte.
type SubscriptionService struct {
	repo     repository.ProfileRepository
	billing  BillingClient
	identity IdentityLookup
}

// NewSubscriptionService cria uma nova instância do SubscriptionService.
func NewSubscriptionService(repo repository.ProfileRepository, billing BillingClient, identity IdentityLookup) *SubscriptionService {
	return &SubscriptionService{
		repo:     repo,
		billing:  billing,
		identity: identity,
	}
}

// Reconcile é o caminho "pull": verifica na Stripe o estado da assinatura do
// usuário autenticado e grava o resultado no perfil.
func (s *SubscriptionService) Reconcile(ctx context.Context, userID, email string) (*domain.SubscriptionStatus, error) {
	if err := s.repo.Ensure(ctx, userID, ""); err != nil {
		return nil, fmt.Errorf("falha ao garantir o perfil: %w", err)
	}

	customerID, err := s.billing.FindCustomerByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		slog.Info("nenhum cliente na stripe, aplicando plano teste", "user_id", userID)
		return s.applyDefault(ctx, userID)
	}

	subs, err := s.billing.ListActiveSubscriptions(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		slog.Info("nenhuma assinatura ativa, aplicando plano teste", "user_id", userID, "customer_id", customerID)
		return s.applyDefault(ctx, userID)
	}

	plan, expiresAt := resolveEntitlement(subs[0])
	if err := s.repo.UpdateSubscription(ctx, userID, plan, expiresAt); err != nil {
		return nil, err
	}
	slog.Info("assinatura reconciliada", "user_id", userID, "plan", plan, "expires_at", expiresAt)

	return &domain.SubscriptionStatus{
		Subscribed:      true,
		CurrentPlan:     plan,
		SubscriptionEnd: &expiresAt,
	}, nil
}

// Profile devolve o perfil do usuário, criando-o com os padrões se for a
// primeira visita ao dashboard.
func (s *SubscriptionService) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := s.repo.Ensure(ctx, userID, ""); err != nil {
		return nil, err
	}
	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrPerfilNaoEncontrado
	}
	return profile, nil
}

// HandleWebhookEvent é o caminho "push": processa um evento já verificado da
// Stripe. Retornar erro faz o handler responder 5xx e a Stripe reentregar;
// condições terminais (evento irrelevante, usuário sem conta) retornam nil
// para que o evento seja confirmado e não volte.
func (s *SubscriptionService) HandleWebhookEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return fmt.Errorf("payload de sessão inválido: %w", err)
		}
		if sess.Mode != stripe.CheckoutSessionModeSubscription || sess.Subscription == nil {
			slog.Info("ignorando checkout que não é de assinatura", "session_id", sess.ID)
			return nil
		}
		sub, err := s.billing.RetrieveSubscription(ctx, sess.Subscription.ID)
		if err != nil {
			return err
		}
		return s.applyProviderState(ctx, sub, false)

	case "invoice.payment_succeeded", "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("payload de assinatura inválido: %w", err)
		}
		return s.applyProviderState(ctx, &sub, false)

	case "customer.subscription.deleted", "invoice.payment_failed":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("payload de assinatura inválido: %w", err)
		}
		return s.applyProviderState(ctx, &sub, true)

	default:
		slog.Info("evento da stripe não tratado", "event_type", event.Type)
		return nil
	}
}

// applyProviderState resolve o dono do evento e grava o estado derivado.
// deactivate força o rebaixamento para o plano teste mesmo que o status da
// assinatura ainda conste como ativo (caso do subscription.deleted).
func (s *SubscriptionService) applyProviderState(ctx context.Context, sub *stripe.Subscription, deactivate bool) error {
	if sub.Customer == nil || sub.Customer.ID == "" {
		return errors.New("evento sem cliente associado")
	}

	cust, err := s.billing.RetrieveCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return err
	}
	if cust.Deleted || cust.Email == "" {
		return fmt.Errorf("cliente %s sem email na stripe", sub.Customer.ID)
	}

	userID, err := s.identity.FindUserIDByEmail(ctx, cust.Email)
	if errors.Is(err, identity.ErrUserNotFound) {
		// Sem conta correspondente não há o que atualizar; confirmamos o
		// evento mesmo assim, porque reentrega não cria a conta.
		slog.Warn("cliente da stripe sem conta correspondente", "email", cust.Email, "customer_id", sub.Customer.ID)
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.repo.Ensure(ctx, userID, cust.Name); err != nil {
		return fmt.Errorf("falha ao garantir o perfil: %w", err)
	}

	plan := domain.PlanTeste
	expiresAt := time.Now().Add(domain.TrialPeriod)
	if !deactivate && sub.Status == stripe.SubscriptionStatusActive {
		plan, expiresAt = resolveEntitlement(sub)
	}

	if err := s.repo.UpdateSubscription(ctx, userID, plan, expiresAt); err != nil {
		return err
	}
	slog.Info("perfil atualizado via webhook", "user_id", userID, "plan", plan, "expires_at", expiresAt)
	return nil
}

// applyDefault grava o plano teste com validade de 30 dias.
func (s *SubscriptionService) applyDefault(ctx context.Context, userID string) (*domain.SubscriptionStatus, error) {
	if err := s.repo.UpdateSubscription(ctx, userID, domain.PlanTeste, time.Now().Add(domain.TrialPeriod)); err != nil {
		return nil, err
	}
	return &domain.SubscriptionStatus{
		Subscribed:  false,
		CurrentPlan: domain.PlanTeste,
	}, nil
}

// resolveEntitlement extrai plano e vigência de uma assinatura ativa.
// Um price desconhecido vira plano teste e um period end inválido vira
// now+30d: a reconciliação prefere um padrão plausível a negar acesso a quem
// pagou.
func resolveEntitlement(sub *stripe.Subscription) (domain.Plan, time.Time) {
	priceID := ""
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		priceID = sub.Items.Data[0].Price.ID
	}
	plan := domain.PlanFromPrice(priceID)

	end := sub.CurrentPeriodEnd
	if end <= 0 {
		slog.Warn("period end inválido na assinatura, usando fallback de 30 dias",
			"subscription_id", sub.ID, "current_period_end", end)
		return plan, time.Now().Add(domain.TrialPeriod)
	}
	return plan, time.Unix(end, 0)
}
