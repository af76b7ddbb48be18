package domain

// Scheduling defaults
const (
	// DefaultBreakBufferMinutes минимальный перерыв между сессиями одного консультанта
	DefaultBreakBufferMinutes = 10

	DefaultSessionDurationMinutes = 50
)

// Slot grid: 09:00-20:00 inclusive, every 30 minutes
const (
	SlotGridStart       = "09:00"
	SlotGridEnd         = "20:00"
	SlotGridStepMinutes = 30
)

// AllowedSessionDurations допустимые длительности сессии в минутах
var AllowedSessionDurations = []int{30, 50, 80, 100}

// Business validation constants
const (
	MinExtensionSessions = 1
	MaxExtensionSessions = 1000

	MinPackageSessions = 1
	MaxPackageSessions = 1000

	MaxPackageNameLength      = 200
	MaxTitleLength            = 200
	MaxDescriptionLength      = 1000
	MaxReasonLength           = 500
	MaxPaymentReferenceLength = 200
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// IsAllowedDuration проверяет, что длительность входит в допустимый набор
func IsAllowedDuration(minutes int) bool {
	for _, d := range AllowedSessionDurations {
		if d == minutes {
			return true
		}
	}
	return false
}
