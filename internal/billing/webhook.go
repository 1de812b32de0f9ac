package billing

import (
	"errors"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// ErrWebhookSecretMissing indica que o endpoint de webhook subiu sem segredo
// configurado. É erro de configuração, não de requisição.
var ErrWebhookSecretMissing = errors.New("segredo do webhook da stripe não configurado")

// WebhookVerifier valida a autenticidade dos eventos enviados pela Stripe.
type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify confere a assinatura sobre os bytes crus do corpo da requisição.
// A assinatura da Stripe é calculada sobre os bytes exatos; qualquer
// reserialização do JSON antes da verificação a invalidaria.
func (v *WebhookVerifier) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	if v.secret == "" {
		return stripe.Event{}, ErrWebhookSecretMissing
	}
	return webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}
