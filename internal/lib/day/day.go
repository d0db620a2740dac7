// Package day содержит арифметику календарных дней без учета времени суток.
package day

import (
	"fmt"
	"time"
)

// Layout формат календарной даты, используемый в хранилище, API и журнале уведомлений.
const Layout = "2006-01-02"

// Date отбрасывает время суток, оставляя год, месяц и день в UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Diff возвращает разницу в календарных днях между to и from.
// Положительное значение означает, что to позже from.
func Diff(to, from time.Time) int {
	hours := Date(to).Sub(Date(from)).Hours()
	// в UTC сутки всегда 24 часа, поэтому деление точное
	return int(hours / 24)
}

// Format приводит момент времени к строке YYYY-MM-DD его календарного дня.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse разбирает строку YYYY-MM-DD.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected %s: %w", s, Layout, err)
	}
	return t, nil
}

// AddDays сдвигает календарную дату на n дней.
func AddDays(t time.Time, n int) time.Time {
	return Date(t).AddDate(0, 0, n)
}
