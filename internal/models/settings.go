package models

// PermissionState состояние разрешения на всплывающие уведомления.
type PermissionState string

const (
	PermissionUndetermined PermissionState = "undetermined"
	PermissionGranted      PermissionState = "granted"
	PermissionDenied       PermissionState = "denied"
)

// Valid сообщает, является ли значение одним из известных состояний.
func (p PermissionState) Valid() bool {
	switch p {
	case PermissionUndetermined, PermissionGranted, PermissionDenied:
		return true
	}
	return false
}

// EmailConfig настройки канала электронной почты.
type EmailConfig struct {
	ServiceID  string `json:"service_id"`
	TemplateID string `json:"template_id"`
	PublicKey  string `json:"public_key"`
	Enabled    bool   `json:"enabled"`
}

// Configured возвращает true, если заполнены все учетные данные провайдера.
func (c EmailConfig) Configured() bool {
	return c.ServiceID != "" && c.TemplateID != "" && c.PublicKey != ""
}

// PopupConfig настройки канала всплывающих уведомлений.
type PopupConfig struct {
	Permission PermissionState `json:"permission"`
}

// ChannelConfig настройки всех каналов доставки.
type ChannelConfig struct {
	Popup PopupConfig `json:"popup"`
	Email EmailConfig `json:"email"`
}

// DummyEmailConfig запрос на сохранение настроек почты.
type DummyEmailConfig struct {
	ServiceID  string `json:"service_id"`
	TemplateID string `json:"template_id"`
	PublicKey  string `json:"public_key"`
	Enabled    bool   `json:"enabled"`
}

// DummyPopupConfig запрос на изменение разрешения всплывающих уведомлений.
type DummyPopupConfig struct {
	Permission PermissionState `json:"permission" validate:"required,oneof=undetermined granted denied"`
}

// DummyEmailTest запрос на тестовую отправку письма.
type DummyEmailTest struct {
	Email string `json:"email" validate:"required,email"`
}
