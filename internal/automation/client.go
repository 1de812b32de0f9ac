// Package automation fala com o motor de automação externo que cuida do
// pareamento do WhatsApp. A edição de fotos em si acontece toda do lado de lá;
// esta API só dispara os webhooks de conexão, validação e desconexão.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client dispara os webhooks do fluxo de pareamento.
type Client struct {
	connectURL    string
	verifyURL     string
	disconnectURL string
	httpClient    *http.Client
}

func NewClient(connectURL, verifyURL, disconnectURL string) *Client {
	return &Client{
		connectURL:    connectURL,
		verifyURL:     verifyURL,
		disconnectURL: disconnectURL,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

// RequestPairingCode pede que o motor envie o código de 6 dígitos para o
// número informado.
func (c *Client) RequestPairingCode(ctx context.Context, userID, phoneNumber string) error {
	payload := map[string]string{
		"phone_number": phoneNumber,
		"user_id":      userID,
	}
	resp, err := c.post(ctx, c.connectURL, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook de conexão respondeu status %d", resp.StatusCode)
	}
	return nil
}

// ValidateCode envia o código digitado pelo usuário e retorna se ele confere.
func (c *Client) ValidateCode(ctx context.Context, userID, phoneNumber, code string) (bool, error) {
	payload := map[string]string{
		"phone_number": phoneNumber,
		"code":         code,
		"user_id":      userID,
	}
	resp, err := c.post(ctx, c.verifyURL, payload)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var result struct {
		Status bool `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("resposta inválida do webhook de validação: %w", err)
	}
	return result.Status, nil
}

// Disconnect desliga a instância do WhatsApp associada ao número.
func (c *Client) Disconnect(ctx context.Context, userID, phoneNumber string) error {
	payload := map[string]string{
		"user_id":      userID,
		"phone_number": phoneNumber,
	}
	resp, err := c.post(ctx, c.disconnectURL, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook de desconexão respondeu status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload map[string]string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}
