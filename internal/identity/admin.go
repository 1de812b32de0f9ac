package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUserNotFound indica que nenhuma conta corresponde ao email procurado.
// No caminho do webhook isso é condição terminal: reentregar o evento não faz
// a conta aparecer.
var ErrUserNotFound = errors.New("usuário não encontrado no provedor de identidade")

// AdminClient consulta a API administrativa do provedor de identidade.
// Usado apenas pelo webhook, que recebe da Stripe o cliente de cobrança e
// precisa descobrir a qual conta ele pertence.
type AdminClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

func NewAdminClient(baseURL, serviceKey string) *AdminClient {
	return &AdminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type adminUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type adminUsersResponse struct {
	Users []adminUser `json:"users"`
}

// FindUserIDByEmail resolve o ID da conta a partir do email do cliente Stripe.
func (c *AdminClient) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	endpoint := fmt.Sprintf("%s/auth/v1/admin/users?email=%s", c.baseURL, url.QueryEscape(email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("falha ao consultar o provedor de identidade: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provedor de identidade respondeu status %d", resp.StatusCode)
	}

	var body adminUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("resposta inválida do provedor de identidade: %w", err)
	}

	for _, u := range body.Users {
		if strings.EqualFold(u.Email, email) {
			return u.ID, nil
		}
	}
	return "", ErrUserNotFound
}
