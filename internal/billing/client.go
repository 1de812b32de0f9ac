// Package billing encapsula as chamadas à Stripe usadas pela reconciliação e
// pelo checkout. A chave da API é injetada no construtor; nada aqui depende do
// estado global do stripe-go, o que deixa os testes livres para usar um fake.
package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// Timeout de cada chamada à Stripe. Nenhuma operação fica esperando
// indefinidamente: em caso de lentidão o erro sobe para o chamador decidir.
const requestTimeout = 20 * time.Second

// CheckoutParams reúne o necessário para abrir uma sessão de checkout.
// Quando CustomerID está vazio, o email é enviado e a Stripe cria o cliente
// durante o próprio checkout.
type CheckoutParams struct {
	CustomerID string
	Email      string
	PriceID    string
	UserID     string
	SuccessURL string
	CancelURL  string
}

// Client é o wrapper fino sobre a API da Stripe.
type Client struct {
	api *client.API
}

// NewClient cria o cliente da Stripe com a chave secreta informada.
func NewClient(secretKey string) *Client {
	httpClient := &http.Client{Timeout: requestTimeout}
	backends := stripe.NewBackends(httpClient)

	api := &client.API{}
	api.Init(secretKey, backends)

	return &Client{api: api}
}

// FindCustomerByEmail busca o cliente da Stripe pelo email. Retorna string
// vazia (sem erro) quando não há cliente: é o caso esperado de usuário novo.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := c.api.Customers.List(params)
	for it.Next() {
		return it.Customer().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", err
	}
	return "", nil
}

// ListActiveSubscriptions lista as assinaturas ativas de um cliente.
// Esperamos no máximo uma; se houver mais de uma, a primeira é a que vale.
func (c *Client) ListActiveSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	var subs []*stripe.Subscription
	it := c.api.Subscriptions.List(params)
	for it.Next() {
		subs = append(subs, it.Subscription())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// RetrieveSubscription busca uma assinatura pelo ID, usado quando o evento de
// webhook referencia a assinatura sem embutir os dados completos.
func (c *Client) RetrieveSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return c.api.Subscriptions.Get(id, params)
}

// RetrieveCustomer busca o cliente pelo ID para obter o email cadastrado.
func (c *Client) RetrieveCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	return c.api.Customers.Get(id, params)
}

// RetrievePrice valida que um price existe na Stripe antes do checkout.
func (c *Client) RetrievePrice(ctx context.Context, id string) (*stripe.Price, error) {
	params := &stripe.PriceParams{}
	params.Context = ctx
	return c.api.Prices.Get(id, params)
}

// CreateCheckoutSession abre uma sessão de checkout em modo assinatura.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx
	if p.CustomerID != "" {
		params.Customer = stripe.String(p.CustomerID)
	} else {
		params.CustomerEmail = stripe.String(p.Email)
	}
	params.AddMetadata("user_id", p.UserID)
	params.AddMetadata("price_id", p.PriceID)

	return c.api.CheckoutSessions.New(params)
}
