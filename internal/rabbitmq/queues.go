package rabbitmq

// Exchange обменник для всех сообщений трекера.
const Exchange = "notifications"

// Ключи маршрутизации.
const (
	RoutingKeyTrialsChanged = "trials.changed"
	RoutingKeyPopup         = "popup"
	RoutingKeyPermission    = "popup.permission"
)

// Очереди.
const (
	QueueTrialsChanged = "notifications.trials_changed"
	QueuePopup         = "notifications.popup"
	QueuePermission    = "notifications.permission"
)

type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// SchedulerQueues очереди, которые читает процесс планировщика.
func SchedulerQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueueTrialsChanged, RoutingKey: RoutingKeyTrialsChanged},
	}
}

// GatewayQueues очереди, которые читает websocket-шлюз API.
func GatewayQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: QueuePopup, RoutingKey: RoutingKeyPopup},
		{QueueName: QueuePermission, RoutingKey: RoutingKeyPermission},
	}
}
