package domain

import "time"

// Profile é o registro local de cada usuário autenticado. A conta em si (email,
// senha) vive no provedor de identidade; aqui guardamos apenas o estado de
// assinatura, os créditos de edição e a conexão com o WhatsApp.
type Profile struct {
	// ID do usuário no provedor de identidade (claim "sub" do token).
	UserID   string `json:"user_id"`
	FullName string `json:"full_name,omitempty"`

	// Estado da conexão com o WhatsApp, gerenciado pelo fluxo de pareamento.
	WhatsAppNumber    string `json:"whatsapp_number,omitempty"`
	WhatsAppConnected bool   `json:"whatsapp_connected"`

	// Estado de assinatura. Escrito exclusivamente pela reconciliação:
	// sempre reflete a última leitura bem-sucedida do estado na Stripe.
	CurrentPlan   Plan       `json:"current_plan"`
	PlanExpiresAt *time.Time `json:"plan_expires_at,omitempty"`

	// Créditos de edição. Contabilizados por outro sistema; aqui são
	// apenas lidos para exibição no dashboard.
	CreditsUsed int64 `json:"credits_used"`
	MaxCredits  int64 `json:"max_credits"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubscriptionStatus é a resposta da verificação de assinatura.
// Subscribed é derivado da Stripe a cada verificação, não persistido.
type SubscriptionStatus struct {
	Subscribed      bool       `json:"subscribed"`
	CurrentPlan     Plan       `json:"current_plan"`
	SubscriptionEnd *time.Time `json:"subscription_end"`
}
