package domain

import "time"

// Plan representa o plano de assinatura do usuário.
type Plan string

const (
	// PlanTeste é o plano padrão, atribuído a todo usuário sem assinatura ativa.
	PlanTeste Plan = "teste"
	PlanMicro Plan = "micro"
	PlanMeso  Plan = "meso"
	PlanMacro Plan = "macro"
)

// TrialPeriod é a validade concedida quando não há assinatura ativa ou quando
// a Stripe devolve uma data de expiração inválida.
const TrialPeriod = 30 * 24 * time.Hour

// Mapping de price IDs da Stripe para planos (produção).
var priceToPlan = map[string]Plan{
	"price_1S9d5HRGP4n024Fuvq3WeHCv": PlanMicro,
	"price_1S9d5HRGP4n024FunrJaW2Mr": PlanMeso,
	"price_1S9d5HRGP4n024FurSVi6ys7": PlanMacro,
	"price_1S9eiNRGP4n024FuzUZw50LJ": PlanTeste, // price de teste usado em homologação
}

// PlanFromPrice resolve o plano interno a partir de um price ID da Stripe.
// Um price desconhecido resolve para o plano teste em vez de falhar: um price
// recém-criado no dashboard não pode derrubar a reconciliação inteira.
func PlanFromPrice(priceID string) Plan {
	if plan, ok := priceToPlan[priceID]; ok {
		return plan
	}
	return PlanTeste
}
