// Package channel описывает канал доставки уведомлений о пробных подписках.
// Планировщик работает со списком каналов и не знает об их устройстве.
package channel

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

// Channel доставляет одно уведомление. Реализации не должны паниковать и
// возвращают ошибку доставки в DeliveryResult.Err.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, trial models.Trial, daysLeft int) models.DeliveryResult
}

// Preparer реализуют каналы, которым нужна подготовка перед проходом,
// например запрос разрешения у пользователя.
type Preparer interface {
	Prepare(ctx context.Context)
}

// Summary возвращает строку-резюме для уведомления: истекла ли подписка
// или сколько дней осталось.
func Summary(serviceName string, daysLeft int) string {
	if daysLeft <= 0 {
		return fmt.Sprintf("Your %s trial has expired!", serviceName)
	}
	return fmt.Sprintf("Your %s trial expires in %d days.", serviceName, daysLeft)
}

// Skipped результат штатного пропуска канала.
func Skipped(name string) models.DeliveryResult {
	return models.DeliveryResult{Channel: name}
}

// Failed результат неудачной доставки.
func Failed(name string, err error) models.DeliveryResult {
	return models.DeliveryResult{Channel: name, Err: err}
}

// Delivered результат успешной доставки.
func Delivered(name string) models.DeliveryResult {
	return models.DeliveryResult{Channel: name, Delivered: true}
}
