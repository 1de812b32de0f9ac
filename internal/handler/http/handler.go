package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v78"

	"github.com/auroai/auroai-api/internal/billing"
	"github.com/auroai/auroai-api/internal/domain"
	"github.com/auroai/auroai-api/internal/identity"
	"github.com/auroai/auroai-api/internal/service"
)

// Interfaces dos serviços que o handler consome. Depender das interfaces, e
// não das implementações concretas, facilita os testes com mocks.

type SubscriptionService interface {
	Reconcile(ctx context.Context, userID, email string) (*domain.SubscriptionStatus, error)
	Profile(ctx context.Context, userID string) (*domain.Profile, error)
	HandleWebhookEvent(ctx context.Context, event stripe.Event) error
}

type CheckoutService interface {
	CreateCheckout(ctx context.Context, userID, email, priceID string) (string, error)
}

type WhatsAppService interface {
	Connect(ctx context.Context, userID, ddi, ddd, number string) error
	VerifyCode(ctx context.Context, userID, code string) error
	Disconnect(ctx context.Context, userID string) error
}

// TokenVerifier valida o token de acesso do dashboard.
type TokenVerifier interface {
	Verify(token string) (*identity.Claims, error)
}

// WebhookVerifier valida a assinatura dos eventos da Stripe.
type WebhookVerifier interface {
	Verify(payload []byte, sigHeader string) (stripe.Event, error)
}

// Handler gerencia as rotas da API do dashboard.
type Handler struct {
	subscriptions SubscriptionService
	checkout      CheckoutService
	whatsapp      WhatsAppService
	tokens        TokenVerifier
	webhooks      WebhookVerifier
}

// NewHandler cria uma nova instância do Handler.
func NewHandler(subs SubscriptionService, checkout CheckoutService, whatsapp WhatsAppService, tokens TokenVerifier, webhooks WebhookVerifier) *Handler {
	return &Handler{
		subscriptions: subs,
		checkout:      checkout,
		whatsapp:      whatsapp,
		tokens:        tokens,
		webhooks:      webhooks,
	}
}

// Routes define e retorna todas as rotas que este handler gerencia.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// O webhook da Stripe é público: a autenticidade vem da assinatura no
	// header, não de token de usuário.
	r.Post("/webhooks/stripe", h.StripeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/assinatura/verificar", h.CheckSubscription)
		r.Post("/assinatura/checkout", h.CreateCheckout)
		r.Get("/perfil", h.GetProfile)
		r.Post("/whatsapp/conectar", h.ConnectWhatsApp)
		r.Post("/whatsapp/verificar-codigo", h.VerifyWhatsAppCode)
		r.Post("/whatsapp/desconectar", h.DisconnectWhatsApp)
	})

	return r
}

// requireAuth exige um bearer token válido e injeta as claims no contexto.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearerToken(r.Header.Get("Authorization"))
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "header de autorização ausente ou inválido")
			return
		}

		claims, err := h.tokens.Verify(token)
		if err != nil {
			slog.Warn("token rejeitado", "path", r.URL.Path, "error", err)
			respondWithError(w, http.StatusUnauthorized, "token inválido")
			return
		}

		ctx := identity.WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// @Summary      Verifica a assinatura do usuário autenticado
// @Description  Reconcilia o estado da assinatura com a Stripe e retorna o plano vigente
// @Tags         assinatura
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.SubscriptionStatus
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /assinatura/verificar [post]
func (h *Handler) CheckSubscription(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "contexto de autenticação ausente")
		return
	}

	status, err := h.subscriptions.Reconcile(r.Context(), claims.UserID, claims.Email)
	if err != nil {
		slog.Error("falha na reconciliação", "user_id", claims.UserID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "erro ao verificar assinatura")
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

type createCheckoutRequest struct {
	PriceID string `json:"priceId"`
}

// @Summary      Cria uma sessão de checkout na Stripe
// @Description  Gera a URL de pagamento para o usuário assinar o plano escolhido
// @Tags         assinatura
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCheckoutRequest  true  "Price ID do plano"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /assinatura/checkout [post]
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "contexto de autenticação ausente")
		return
	}

	var req createCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	url, err := h.checkout.CreateCheckout(r.Context(), claims.UserID, claims.Email, req.PriceID)
	if err != nil {
		h.respondCheckoutError(w, claims.UserID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"url": url})
}

// respondCheckoutError traduz as falhas do checkout para o status e o corpo
// apropriados, preservando code/type da Stripe para diagnóstico no frontend.
func (h *Handler) respondCheckoutError(w http.ResponseWriter, userID string, err error) {
	slog.Error("falha ao criar checkout", "user_id", userID, "error", err)

	switch {
	case errors.Is(err, service.ErrPriceObrigatorio),
		errors.Is(err, service.ErrFormatoPriceInvalido),
		errors.Is(err, service.ErrPriceInativo):
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		status := http.StatusInternalServerError
		if stripeErr.Type == stripe.ErrorTypeInvalidRequest {
			status = http.StatusBadRequest
		}
		respondWithJSON(w, status, map[string]any{
			"error": stripeErr.Msg,
			"code":  stripeErr.Code,
			"type":  stripeErr.Type,
		})
		return
	}

	respondWithError(w, http.StatusInternalServerError, "erro ao criar sessão de checkout")
}

// @Summary      Retorna o perfil do usuário autenticado
// @Tags         perfil
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Profile
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /perfil [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "contexto de autenticação ausente")
		return
	}

	profile, err := h.subscriptions.Profile(r.Context(), claims.UserID)
	if err != nil {
		slog.Error("falha ao carregar perfil", "user_id", claims.UserID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "erro ao carregar perfil")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

// @Summary      Recebe eventos de assinatura da Stripe
// @Description  Valida a assinatura do evento e atualiza o plano do usuário correspondente
// @Tags         webhooks
// @Accept       json
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /webhooks/stripe [post]
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("falha ao ler o corpo do webhook", "error", err)
		respondWithError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}

	event, err := h.webhooks.Verify(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrWebhookSecretMissing) {
			respondWithError(w, http.StatusInternalServerError, "webhook não configurado")
			return
		}
		slog.Warn("assinatura do webhook rejeitada", "error", err)
		respondWithError(w, http.StatusBadRequest, "falha na verificação da assinatura")
		return
	}

	if err := h.subscriptions.HandleWebhookEvent(r.Context(), event); err != nil {
		// 5xx faz a Stripe reentregar o evento.
		slog.Error("falha ao processar evento da stripe", "event_type", event.Type, "error", err)
		respondWithError(w, http.StatusInternalServerError, "erro ao processar evento")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type connectWhatsAppRequest struct {
	DDI    string `json:"ddi"`
	DDD    string `json:"ddd"`
	Number string `json:"number"`
}

// @Summary      Inicia o pareamento do WhatsApp
// @Tags         whatsapp
// @Accept       json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /whatsapp/conectar [post]
func (h *Handler) ConnectWhatsApp(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "contexto de autenticação ausente")
		return
	}

	var req connectWhatsAppRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "corpo da requisição inválido")
		return
	}
	if req.Number == "" {
		respondWithError(w, http.StatusBadRequest, "número é obrigatório")
		return
	}

	if err := h.whatsapp.Connect(r.Context(), claims.UserID, req.DDI, req.DDD, req.Number); err != nil {
		slog.Error("falha ao conectar whatsapp", "user_id", claims.UserID, "error", err)
		respondWithError(w, http.StatusBadGateway, "erro ao enviar código de verificação")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "código enviado"})
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

// @Summary      Confirma o código de pareamento do WhatsApp
// @Tags         whatsapp
// @Accept       json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /whatsapp/verificar-codigo [post]
func (h *Handler) VerifyWhatsAppCode(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "contexto de autenticação ausente")
		return
	}

	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		respondWithError(w, http.StatusBadRequest, "código é obrigatório")
		return
	}

	err := h.whatsapp.VerifyCode(r.Context(), claims.UserID, req.Code)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "conectado"})
	case errors.Is(err, service.ErrCodigoInvalido):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNumeroNaoCadastrado):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("falha ao verificar código", "user_id", claims.UserID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "erro ao verificar código")
	}
}

// @Summary      Desconecta o WhatsApp do usuário
// @Tags         whatsapp
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /whatsapp/desconectar [post]
func (h *Handler) DisconnectWhatsApp(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "contexto de autenticação ausente")
		return
	}

	err := h.whatsapp.Disconnect(r.Context(), claims.UserID)
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "desconectado"})
	case errors.Is(err, service.ErrNumeroNaoCadastrado):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("falha ao desconectar whatsapp", "user_id", claims.UserID, "error", err)
		respondWithError(w, http.StatusInternalServerError, "erro ao desconectar whatsapp")
	}
}

// --- FUNÇÕES AUXILIARES ---

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("falha ao serializar resposta", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
