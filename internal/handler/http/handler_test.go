package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v78"

	"github.com/auroai/auroai-api/internal/billing"
	"github.com/auroai/auroai-api/internal/domain"
	"github.com/auroai/auroai-api/internal/identity"
	"github.com/auroai/auroai-api/internal/service"
)

// --- Mocks das dependências do handler ---

type mockSubscriptionService struct {
	ReconcileFn          func(ctx context.Context, userID, email string) (*domain.SubscriptionStatus, error)
	ProfileFn            func(ctx context.Context, userID string) (*domain.Profile, error)
	HandleWebhookEventFn func(ctx context.Context, event stripe.Event) error
}

func (m *mockSubscriptionService) Reconcile(ctx context.Context, userID, email string) (*domain.SubscriptionStatus, error) {
	return m.ReconcileFn(ctx, userID, email)
}

func (m *mockSubscriptionService) Profile(ctx context.Context, userID string) (*domain.Profile, error) {
	return m.ProfileFn(ctx, userID)
}

func (m *mockSubscriptionService) HandleWebhookEvent(ctx context.Context, event stripe.Event) error {
	return m.HandleWebhookEventFn(ctx, event)
}

type mockCheckoutService struct {
	CreateCheckoutFn func(ctx context.Context, userID, email, priceID string) (string, error)
}

func (m *mockCheckoutService) CreateCheckout(ctx context.Context, userID, email, priceID string) (string, error) {
	return m.CreateCheckoutFn(ctx, userID, email, priceID)
}

type mockWhatsAppService struct {
	ConnectFn    func(ctx context.Context, userID, ddi, ddd, number string) error
	VerifyCodeFn func(ctx context.Context, userID, code string) error
	DisconnectFn func(ctx context.Context, userID string) error
}

func (m *mockWhatsAppService) Connect(ctx context.Context, userID, ddi, ddd, number string) error {
	return m.ConnectFn(ctx, userID, ddi, ddd, number)
}

func (m *mockWhatsAppService) VerifyCode(ctx context.Context, userID, code string) error {
	return m.VerifyCodeFn(ctx, userID, code)
}

func (m *mockWhatsAppService) Disconnect(ctx context.Context, userID string) error {
	return m.DisconnectFn(ctx, userID)
}

// mockTokenVerifier aceita o token fixo "token-valido".
type mockTokenVerifier struct{}

func (m *mockTokenVerifier) Verify(token string) (*identity.Claims, error) {
	if token == "token-valido" {
		return &identity.Claims{UserID: "u1", Email: "a@example.com"}, nil
	}
	return nil, errors.New("token inválido")
}

type mockWebhookVerifier struct {
	VerifyFn func(payload []byte, sigHeader string) (stripe.Event, error)
}

func (m *mockWebhookVerifier) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	return m.VerifyFn(payload, sigHeader)
}

func newTestHandler(subs SubscriptionService, checkout CheckoutService, whatsapp WhatsAppService, webhooks WebhookVerifier) *Handler {
	return NewHandler(subs, checkout, whatsapp, &mockTokenVerifier{}, webhooks)
}

// --- Testes ---

func TestCheckSubscription(t *testing.T) {
	t.Run("sem token retorna 401", func(t *testing.T) {
		handler := newTestHandler(&mockSubscriptionService{}, &mockCheckoutService{}, &mockWhatsAppService{}, &mockWebhookVerifier{})

		req := httptest.NewRequest("POST", "/assinatura/verificar", nil)
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("sucesso retorna o estado da assinatura", func(t *testing.T) {
		end := time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC)
		subs := &mockSubscriptionService{
			ReconcileFn: func(ctx context.Context, userID, email string) (*domain.SubscriptionStatus, error) {
				assert.Equal(t, "u1", userID)
				assert.Equal(t, "a@example.com", email)
				return &domain.SubscriptionStatus{
					Subscribed:      true,
					CurrentPlan:     domain.PlanMeso,
					SubscriptionEnd: &end,
				}, nil
			},
		}
		handler := newTestHandler(subs, &mockCheckoutService{}, &mockWhatsAppService{}, &mockWebhookVerifier{})

		req := httptest.NewRequest("POST", "/assinatura/verificar", nil)
		req.Header.Set("Authorization", "Bearer token-valido")
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp domain.SubscriptionStatus
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Subscribed)
		assert.Equal(t, domain.PlanMeso, resp.CurrentPlan)
		assert.Equal(t, end, resp.SubscriptionEnd.UTC())
	})

	t.Run("falha na reconciliação retorna 500", func(t *testing.T) {
		subs := &mockSubscriptionService{
			ReconcileFn: func(ctx context.Context, userID, email string) (*domain.SubscriptionStatus, error) {
				return nil, errors.New("stripe indisponível")
			},
		}
		handler := newTestHandler(subs, &mockCheckoutService{}, &mockWhatsAppService{}, &mockWebhookVerifier{})

		req := httptest.NewRequest("POST", "/assinatura/verificar", nil)
		req.Header.Set("Authorization", "Bearer token-valido")
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestCreateCheckout(t *testing.T) {
	t.Run("sucesso retorna a url da sessão", func(t *testing.T) {
		checkout := &mockCheckoutService{
			CreateCheckoutFn: func(ctx context.Context, userID, email, priceID string) (string, error) {
				assert.Equal(t, "price_abc", priceID)
				return "https://checkout.stripe.com/c/cs_1", nil
			},
		}
		handler := newTestHandler(&mockSubscriptionService{}, checkout, &mockWhatsAppService{}, &mockWebhookVerifier{})

		body, _ := json.Marshal(map[string]string{"priceId": "price_abc"})
		req := httptest.NewRequest("POST", "/assinatura/checkout", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer token-valido")
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)
		assert.Equal(t, "https://checkout.stripe.com/c/cs_1", resp["url"])
	})

	t.Run("price com formato inválido retorna 400", func(t *testing.T) {
		checkout := &mockCheckoutService{
			CreateCheckoutFn: func(ctx context.Context, userID, email, priceID string) (string, error) {
				return "", service.ErrFormatoPriceInvalido
			},
		}
		handler := newTestHandler(&mockSubscriptionService{}, checkout, &mockWhatsAppService{}, &mockWebhookVerifier{})

		body, _ := json.Marshal(map[string]string{"priceId": "abc"})
		req := httptest.NewRequest("POST", "/assinatura/checkout", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer token-valido")
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("erro da stripe propaga code e type", func(t *testing.T) {
		checkout := &mockCheckoutService{
			CreateCheckoutFn: func(ctx context.Context, userID, email, priceID string) (string, error) {
				return "", &stripe.Error{
					Type: stripe.ErrorTypeInvalidRequest,
					Code: stripe.ErrorCodeResourceMissing,
					Msg:  "No such price",
				}
			},
		}
		handler := newTestHandler(&mockSubscriptionService{}, checkout, &mockWhatsAppService{}, &mockWebhookVerifier{})

		body, _ := json.Marshal(map[string]string{"priceId": "price_inexistente"})
		req := httptest.NewRequest("POST", "/assinatura/checkout", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer token-valido")
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var resp map[string]any
		json.Unmarshal(rr.Body.Bytes(), &resp)
		assert.Equal(t, "No such price", resp["error"])
		assert.Equal(t, string(stripe.ErrorCodeResourceMissing), resp["code"])
	})
}

func TestStripeWebhook(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.deleted"}`)

	t.Run("assinatura inválida retorna 400", func(t *testing.T) {
		webhooks := &mockWebhookVerifier{
			VerifyFn: func(p []byte, sig string) (stripe.Event, error) {
				return stripe.Event{}, errors.New("assinatura não confere")
			},
		}
		handler := newTestHandler(&mockSubscriptionService{}, &mockCheckoutService{}, &mockWhatsAppService{}, webhooks)

		req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("segredo ausente retorna 500", func(t *testing.T) {
		webhooks := &mockWebhookVerifier{
			VerifyFn: func(p []byte, sig string) (stripe.Event, error) {
				return stripe.Event{}, billing.ErrWebhookSecretMissing
			},
		}
		handler := newTestHandler(&mockSubscriptionService{}, &mockCheckoutService{}, &mockWhatsAppService{}, webhooks)

		req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("evento verificado é encaminhado ao serviço", func(t *testing.T) {
		var processed stripe.Event
		webhooks := &mockWebhookVerifier{
			VerifyFn: func(p []byte, sig string) (stripe.Event, error) {
				// O verificador recebe os bytes crus, exatamente como chegaram.
				assert.Equal(t, payload, p)
				assert.Equal(t, "sig-header", sig)
				return stripe.Event{Type: "customer.subscription.deleted"}, nil
			},
		}
		subs := &mockSubscriptionService{
			HandleWebhookEventFn: func(ctx context.Context, event stripe.Event) error {
				processed = event
				return nil
			},
		}
		handler := newTestHandler(subs, &mockCheckoutService{}, &mockWhatsAppService{}, webhooks)

		req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", "sig-header")
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "customer.subscription.deleted", string(processed.Type))
	})

	t.Run("falha no processamento retorna 500 para a stripe reentregar", func(t *testing.T) {
		webhooks := &mockWebhookVerifier{
			VerifyFn: func(p []byte, sig string) (stripe.Event, error) {
				return stripe.Event{Type: "customer.subscription.updated"}, nil
			},
		}
		subs := &mockSubscriptionService{
			HandleWebhookEventFn: func(ctx context.Context, event stripe.Event) error {
				return errors.New("banco indisponível")
			},
		}
		handler := newTestHandler(subs, &mockCheckoutService{}, &mockWhatsAppService{}, webhooks)

		req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestGetProfile(t *testing.T) {
	subs := &mockSubscriptionService{
		ProfileFn: func(ctx context.Context, userID string) (*domain.Profile, error) {
			return &domain.Profile{
				UserID:      userID,
				CurrentPlan: domain.PlanMacro,
				CreditsUsed: 12,
				MaxCredits:  200,
			}, nil
		},
	}
	handler := newTestHandler(subs, &mockCheckoutService{}, &mockWhatsAppService{}, &mockWebhookVerifier{})

	req := httptest.NewRequest("GET", "/perfil", nil)
	req.Header.Set("Authorization", "Bearer token-valido")
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp domain.Profile
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, domain.PlanMacro, resp.CurrentPlan)
	assert.Equal(t, int64(12), resp.CreditsUsed)
}

func TestVerifyWhatsAppCode(t *testing.T) {
	t.Run("código incorreto retorna 400", func(t *testing.T) {
		whatsapp := &mockWhatsAppService{
			VerifyCodeFn: func(ctx context.Context, userID, code string) error {
				return service.ErrCodigoInvalido
			},
		}
		handler := newTestHandler(&mockSubscriptionService{}, &mockCheckoutService{}, whatsapp, &mockWebhookVerifier{})

		body, _ := json.Marshal(map[string]string{"code": "000000"})
		req := httptest.NewRequest("POST", "/whatsapp/verificar-codigo", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer token-valido")
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("código correto retorna 200", func(t *testing.T) {
		whatsapp := &mockWhatsAppService{
			VerifyCodeFn: func(ctx context.Context, userID, code string) error {
				return nil
			},
		}
		handler := newTestHandler(&mockSubscriptionService{}, &mockCheckoutService{}, whatsapp, &mockWebhookVerifier{})

		body, _ := json.Marshal(map[string]string{"code": "123456"})
		req := httptest.NewRequest("POST", "/whatsapp/verificar-codigo", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer token-valido")
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
