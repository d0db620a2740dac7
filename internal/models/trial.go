// Package models содержит доменные структуры пробной подписки, настроек каналов
// и результатов доставки уведомлений, а также типы для приема JSON-запросов.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DurationLabel длительность пробного периода.
type DurationLabel string

const (
	Duration7Days  DurationLabel = "7 Days"
	Duration14Days DurationLabel = "14 Days"
	Duration30Days DurationLabel = "30 Days"
	DurationCustom DurationLabel = "Custom"
)

// DefaultCurrency валюта, подставляемая при указанной цене без валюты.
const DefaultCurrency = "USD"

// Days возвращает число дней для фиксированной длительности и false для Custom.
func (l DurationLabel) Days() (int, bool) {
	switch l {
	case Duration7Days:
		return 7, true
	case Duration14Days:
		return 14, true
	case Duration30Days:
		return 30, true
	default:
		return 0, false
	}
}

// Trial представляет отслеживаемую пробную подписку.
// StartDate и EndDate хранят только календарную дату, EndDate является источником истины
// и после создания не пересчитывается по DurationLabel.
type Trial struct {
	ID            string
	ServiceName   string
	Email         string
	StartDate     time.Time
	EndDate       time.Time
	DurationLabel DurationLabel
	IsActive      bool
	Price         *decimal.Decimal
	Currency      string
}

// DummyTrial используется для приёма данных из JSON-запроса на создание или изменение.
// Даты приходят строками в формате 2006-01-02.
type DummyTrial struct {
	ServiceName   string           `json:"service_name" validate:"required"`
	Email         string           `json:"email,omitempty" validate:"omitempty,email"`
	StartDate     string           `json:"start_date" validate:"required"`
	EndDate       string           `json:"end_date,omitempty"`
	DurationLabel DurationLabel    `json:"duration_label" validate:"required"`
	IsActive      *bool            `json:"is_active,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Currency      string           `json:"currency,omitempty"`
}

// TrialStatus отображаемый статус пробной подписки.
type TrialStatus string

const (
	StatusActive       TrialStatus = "Active"
	StatusExpiringSoon TrialStatus = "Expiring Soon"
	StatusExpired      TrialStatus = "Expired"
)

// TrialView ответ API с вычисленными полями.
type TrialView struct {
	ID            string           `json:"id"`
	ServiceName   string           `json:"service_name"`
	Email         string           `json:"email,omitempty"`
	StartDate     string           `json:"start_date"`
	EndDate       string           `json:"end_date"`
	DurationLabel DurationLabel    `json:"duration_label"`
	IsActive      bool             `json:"is_active"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	DaysLeft      int              `json:"days_left"`
	Status        TrialStatus      `json:"status"`
}

// Stats сводка по пробным подпискам для дашборда.
type Stats struct {
	ActiveTrials     int                        `json:"active_trials"`
	ExpiringSoon     int                        `json:"expiring_soon"`
	TotalsByCurrency map[string]decimal.Decimal `json:"totals_by_currency"`
}
