// Package expiry вычисляет остаток дней пробной подписки и решает,
// требует ли она уведомления. Все функции чистые: текущее время передается явно.
package expiry

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/trial-tracker/internal/lib/day"
	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

// Границы окна уведомлений в днях до окончания включительно.
// Нижняя граница отрицательная: об истекшей вчера подписке напоминаем еще раз.
const (
	AlertWindowStart = -1
	AlertWindowEnd   = 3
)

// ExpiringSoonDays порог статуса "Expiring Soon".
const ExpiringSoonDays = 3

// Evaluation результат оценки одной подписки.
type Evaluation struct {
	DaysLeft    int
	AlertWorthy bool
}

// Evaluate считает календарные дни от now до EndDate и проверяет окно уведомлений.
func Evaluate(trial models.Trial, now time.Time) Evaluation {
	daysLeft := DaysLeft(trial, now)
	return Evaluation{
		DaysLeft:    daysLeft,
		AlertWorthy: trial.IsActive && daysLeft >= AlertWindowStart && daysLeft <= AlertWindowEnd,
	}
}

// DaysLeft возвращает разницу в календарных днях между окончанием подписки и now.
func DaysLeft(trial models.Trial, now time.Time) int {
	return day.Diff(trial.EndDate, now)
}

// StatusFor возвращает отображаемый статус. Не участвует в решении об уведомлении:
// подписка становится Expired уже в день окончания, а уведомления идут еще сутки после.
func StatusFor(daysLeft int) models.TrialStatus {
	switch {
	case daysLeft <= 0:
		return models.StatusExpired
	case daysLeft <= ExpiringSoonDays:
		return models.StatusExpiringSoon
	default:
		return models.StatusActive
	}
}

// View собирает ответ API для подписки.
func View(trial models.Trial, now time.Time) models.TrialView {
	daysLeft := DaysLeft(trial, now)
	return models.TrialView{
		ID:            trial.ID,
		ServiceName:   trial.ServiceName,
		Email:         trial.Email,
		StartDate:     day.Format(trial.StartDate),
		EndDate:       day.Format(trial.EndDate),
		DurationLabel: trial.DurationLabel,
		IsActive:      trial.IsActive,
		Price:         trial.Price,
		Currency:      trial.Currency,
		DaysLeft:      daysLeft,
		Status:        StatusFor(daysLeft),
	}
}

// Summarize считает сводку для дашборда по активным подпискам.
func Summarize(trials []models.Trial, now time.Time) models.Stats {
	stats := models.Stats{TotalsByCurrency: make(map[string]decimal.Decimal)}
	for _, trial := range trials {
		if !trial.IsActive {
			continue
		}
		stats.ActiveTrials++

		daysLeft := DaysLeft(trial, now)
		if daysLeft >= 0 && daysLeft <= ExpiringSoonDays {
			stats.ExpiringSoon++
		}

		if trial.Price == nil || trial.Price.IsZero() {
			continue
		}
		currency := trial.Currency
		if currency == "" {
			currency = models.DefaultCurrency
		}
		stats.TotalsByCurrency[currency] = stats.TotalsByCurrency[currency].Add(*trial.Price)
	}
	return stats
}
