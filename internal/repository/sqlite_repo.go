package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/auroai/auroai-api/internal/domain"
)

// ProfileRepository define a interface para a persistência de perfis.
// Usar uma interface nos permite 'mockar' o repositório em testes e trocar a
// implementação do banco de dados facilmente.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	// Ensure cria o perfil com os valores padrão caso ele ainda não exista.
	Ensure(ctx context.Context, userID, fullName string) error
	// UpdateSubscription grava plano e vigência em um único statement, para que
	// nenhum leitor enxergue os dois campos de assinatura fora de sincronia.
	UpdateSubscription(ctx context.Context, userID string, plan domain.Plan, expiresAt time.Time) error
	SetWhatsAppNumber(ctx context.Context, userID, number string) error
	SetWhatsAppConnected(ctx context.Context, userID string, connected bool) error
	ClearWhatsApp(ctx context.Context, userID string) error
}

// sqliteRepository é a implementação do ProfileRepository para SQLite.
type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository cria uma nova instância do repositório de perfis.
func NewSQLiteRepository(db *sql.DB) ProfileRepository {
	return &sqliteRepository{
		db: db,
	}
}

func (r *sqliteRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, full_name, whatsapp_number, whatsapp_connected,
		       current_plan, plan_expires_at, credits_used, max_credits,
		       created_at, updated_at
		FROM profiles
		WHERE user_id = ?`, userID)

	var (
		p         domain.Profile
		fullName  sql.NullString
		number    sql.NullString
		expiresAt sql.NullTime
	)
	err := row.Scan(&p.UserID, &fullName, &number, &p.WhatsAppConnected,
		&p.CurrentPlan, &expiresAt, &p.CreditsUsed, &p.MaxCredits,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Retorna nil, nil se o perfil não for encontrado.
		}
		return nil, err
	}
	p.FullName = fullName.String
	p.WhatsAppNumber = number.String
	if expiresAt.Valid {
		p.PlanExpiresAt = &expiresAt.Time
	}

	return &p, nil
}

func (r *sqliteRepository) Ensure(ctx context.Context, userID, fullName string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, full_name, current_plan)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		userID, nullIfEmpty(fullName), domain.PlanTeste)
	return err
}

func (r *sqliteRepository) UpdateSubscription(ctx context.Context, userID string, plan domain.Plan, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET current_plan = ?, plan_expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?`,
		plan, expiresAt.UTC(), userID)
	return err
}

func (r *sqliteRepository) SetWhatsAppNumber(ctx context.Context, userID, number string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET whatsapp_number = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?`,
		number, userID)
	return err
}

func (r *sqliteRepository) SetWhatsAppConnected(ctx context.Context, userID string, connected bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET whatsapp_connected = ?, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?`,
		connected, userID)
	return err
}

func (r *sqliteRepository) ClearWhatsApp(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles
		SET whatsapp_connected = 0, whatsapp_number = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ?`,
		userID)
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
