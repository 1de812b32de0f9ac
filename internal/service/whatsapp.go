package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/auroai/auroai-api/internal/repository"
)

// Erros de negócio do pareamento de WhatsApp.
var (
	ErrCodigoInvalido      = errors.New("código de verificação incorreto")
	ErrNumeroNaoCadastrado = errors.New("número de whatsapp não cadastrado")
)

// AutomationClient é o contrato com o motor de automação que executa o
// pareamento de fato.
type AutomationClient interface {
	RequestPairingCode(ctx context.Context, userID, phoneNumber string) error
	ValidateCode(ctx context.Context, userID, phoneNumber, code string) (bool, error)
	Disconnect(ctx context.Context, userID, phoneNumber string) error
}

// WhatsAppService orquestra a conexão do número do usuário: o número é salvo
// antes de acionar o motor, e o flag de conectado só muda depois que o motor
// confirma o código.
type WhatsAppService struct {
	repo       repository.ProfileRepository
	automation AutomationClient
}

// NewWhatsAppService cria uma nova instância do WhatsAppService.
func NewWhatsAppService(repo repository.ProfileRepository, automation AutomationClient) *WhatsAppService {
	return &WhatsAppService{
		repo:       repo,
		automation: automation,
	}
}

// Connect registra o número completo (DDI+DDD+número) e pede o envio do
// código de pareamento.
func (s *WhatsAppService) Connect(ctx context.Context, userID, ddi, ddd, number string) error {
	fullNumber := ddi + ddd + number
	if fullNumber == "" {
		return ErrNumeroNaoCadastrado
	}

	if err := s.repo.Ensure(ctx, userID, ""); err != nil {
		return err
	}
	if err := s.repo.SetWhatsAppNumber(ctx, userID, fullNumber); err != nil {
		return fmt.Errorf("falha ao salvar o número: %w", err)
	}

	if err := s.automation.RequestPairingCode(ctx, userID, fullNumber); err != nil {
		return fmt.Errorf("falha ao solicitar o código de pareamento: %w", err)
	}
	slog.Info("código de pareamento solicitado", "user_id", userID)
	return nil
}

// VerifyCode confirma o código digitado pelo usuário junto ao motor.
func (s *WhatsAppService) VerifyCode(ctx context.Context, userID, code string) error {
	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil || profile.WhatsAppNumber == "" {
		return ErrNumeroNaoCadastrado
	}

	ok, err := s.automation.ValidateCode(ctx, userID, profile.WhatsAppNumber, code)
	if err != nil {
		return fmt.Errorf("falha ao validar o código: %w", err)
	}
	if !ok {
		return ErrCodigoInvalido
	}

	if err := s.repo.SetWhatsAppConnected(ctx, userID, true); err != nil {
		return err
	}
	slog.Info("whatsapp conectado", "user_id", userID)
	return nil
}

// Disconnect desliga a instância no motor e limpa o número do perfil.
func (s *WhatsAppService) Disconnect(ctx context.Context, userID string) error {
	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil || profile.WhatsAppNumber == "" {
		return ErrNumeroNaoCadastrado
	}

	if err := s.automation.Disconnect(ctx, userID, profile.WhatsAppNumber); err != nil {
		return fmt.Errorf("falha ao desconectar no motor de automação: %w", err)
	}

	if err := s.repo.ClearWhatsApp(ctx, userID); err != nil {
		return err
	}
	slog.Info("whatsapp desconectado", "user_id", userID)
	return nil
}
