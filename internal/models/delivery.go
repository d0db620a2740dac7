package models

// DeliveryResult результат попытки доставки уведомления через один канал.
// Delivered=false без ошибки означает штатный пропуск (канал выключен или не настроен).
type DeliveryResult struct {
	Channel   string
	Delivered bool
	Err       error
}

// TrialsChanged событие об изменении набора пробных подписок.
type TrialsChanged struct {
	TrialID string `json:"trial_id"`
	Action  string `json:"action"`
}

// Действия над пробной подпиской для события TrialsChanged.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionRemoved = "removed"
)
