package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

const trialColumns = `id, service_name, email, start_date, end_date, duration_label, is_active, price, currency`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrial(row rowScanner) (models.Trial, error) {
	var (
		t     models.Trial
		label string
		price decimal.NullDecimal
	)
	if err := row.Scan(&t.ID, &t.ServiceName, &t.Email, &t.StartDate, &t.EndDate,
		&label, &t.IsActive, &price, &t.Currency); err != nil {
		return models.Trial{}, err
	}
	t.DurationLabel = models.DurationLabel(label)
	if price.Valid {
		p := price.Decimal
		t.Price = &p
	}
	return t, nil
}

func priceArg(p *decimal.Decimal) any {
	if p == nil {
		return nil
	}
	return *p
}

// CreateTrial вставляет новую пробную подписку. Идентификатор задает вызывающий.
func (s *Storage) CreateTrial(ctx context.Context, trial models.Trial) error {
	const op = "storage.CreateTrial"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO trials (` + trialColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.DB.ExecContext(ctx, query,
		trial.ID, trial.ServiceName, trial.Email, trial.StartDate, trial.EndDate,
		string(trial.DurationLabel), trial.IsActive, priceArg(trial.Price), trial.Currency)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReadTrial возвращает пробную подписку по идентификатору.
func (s *Storage) ReadTrial(ctx context.Context, id string) (*models.Trial, error) {
	const op = "storage.ReadTrial"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + trialColumns + ` FROM trials WHERE id = $1`
	trial, err := scanTrial(s.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &trial, nil
}

// UpdateTrial перезаписывает пробную подписку с тем же идентификатором.
func (s *Storage) UpdateTrial(ctx context.Context, trial models.Trial) error {
	const op = "storage.UpdateTrial"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE trials
			  SET service_name = $1, email = $2, start_date = $3, end_date = $4,
			      duration_label = $5, is_active = $6, price = $7, currency = $8
			  WHERE id = $9`
	result, err := s.DB.ExecContext(ctx, query,
		trial.ServiceName, trial.Email, trial.StartDate, trial.EndDate,
		string(trial.DurationLabel), trial.IsActive, priceArg(trial.Price), trial.Currency, trial.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// RemoveTrial удаляет пробную подписку. Запись журнала уведомлений не трогается.
func (s *Storage) RemoveTrial(ctx context.Context, id string) error {
	const op = "storage.RemoveTrial"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM trials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// ListTrials возвращает все пробные подписки, ближайшие к окончанию первыми.
func (s *Storage) ListTrials(ctx context.Context) ([]models.Trial, error) {
	const op = "storage.ListTrials"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + trialColumns + ` FROM trials ORDER BY end_date, created_at`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.Trial
	for rows.Next() {
		trial, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, trial)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
