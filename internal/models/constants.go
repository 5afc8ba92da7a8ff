package models

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	TechniquePottersWheel = "potters_wheel"
	TechniqueHandModeling = "hand_modeling"
	TechniquePainting     = "painting"
)

const (
	AuditActionHold    = "hold"
	AuditActionConsume = "consume"
	AuditActionRelease = "release"
)

const (
	// DefaultHorizonDays длина скользящего горизонта генерации сессий
	DefaultHorizonDays = 30

	// SlotStepMinutes шаг свободных слотов в рабочие часы
	SlotStepMinutes = 30

	// SmallGroupThreshold минимальный размер группы для свободных слотов
	// на гончарном круге
	SmallGroupThreshold = 3

	// MailMaxAttempts количество попыток отправки письма
	MailMaxAttempts = 3

	// MailQueueSize размер очереди почтового воркера
	MailQueueSize = 256

	// ScheduleCacheTTL время жизни кэша расписания в секундах
	ScheduleCacheTTL = 5 * 60
)

// Techniques lists the supported disciplines in display order.
var Techniques = []string{TechniquePottersWheel, TechniqueHandModeling, TechniquePainting}

// ValidTechnique reports whether t names a known discipline.
func ValidTechnique(t string) bool {
	for _, known := range Techniques {
		if known == t {
			return true
		}
	}
	return false
}
