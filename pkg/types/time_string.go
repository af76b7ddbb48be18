package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MinutesPerDay количество минут в сутках
	MinutesPerDay = 24 * 60

	// MaxMinuteOfDay последняя минута суток (23:59)
	MaxMinuteOfDay = MinutesPerDay - 1
)

var (
	// ErrInvalidTimeFormat возвращается, когда строка не соответствует формату HH:MM
	ErrInvalidTimeFormat = errors.New("types: invalid time string format")

	// ErrTimeOutOfRange возвращается, когда результат арифметики выходит за пределы суток
	ErrTimeOutOfRange = errors.New("types: time is out of day range")
)

// TimeString время суток в формате "HH:MM" с минутной точностью.
// Хранится как строка, чтобы значение из БД, которое не удалось разобрать,
// не роняло чтение всей выборки: проверка выполняется при арифметике.
type TimeString string

// NewTimeString создает TimeString из time.Time (секунды отбрасываются)
func NewTimeString(t time.Time) TimeString {
	return FromMinutes(t.Hour()*60 + t.Minute())
}

// NewTimeStringFromString разбирает строку "HH:MM" (допускается "HH:MM:SS" из БД)
func NewTimeStringFromString(s string) (TimeString, error) {
	minutes, err := ToMinutes(s)
	if err != nil {
		return "", err
	}
	return FromMinutes(minutes), nil
}

// ToMinutes переводит "HH:MM" в количество минут с полуночи
func ToMinutes(s string) (int, error) {
	s = strings.TrimSpace(s)

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}
	if len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	// Секунды допускаются только нулевые: колонка TIME отдает "10:00:00"
	if len(parts) == 3 && parts[2] != "00" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, s)
	}

	return hours*60 + minutes, nil
}

// FromMinutes обратное преобразование, результат ограничен диапазоном [00:00, 23:59]
func FromMinutes(minutes int) TimeString {
	if minutes < 0 {
		minutes = 0
	}
	if minutes > MaxMinuteOfDay {
		minutes = MaxMinuteOfDay
	}
	return TimeString(fmt.Sprintf("%02d:%02d", minutes/60, minutes%60))
}

// IntervalsOverlap проверяет пересечение полуоткрытых интервалов [startA, endA) и [startB, endB).
// Интервалы, которые только касаются концами, не пересекаются.
func IntervalsOverlap(startA, endA, startB, endB int) bool {
	return startA < endB && startB < endA
}

// GapMinutes абсолютная разница между двумя моментами в минутах
func GapMinutes(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// Minutes возвращает количество минут с полуночи
func (t TimeString) Minutes() (int, error) {
	return ToMinutes(string(t))
}

// AddMinutes прибавляет минуты, не допуская выхода за пределы суток
func (t TimeString) AddMinutes(delta int) (TimeString, error) {
	minutes, err := t.Minutes()
	if err != nil {
		return "", err
	}

	result := minutes + delta
	if result < 0 || result > MaxMinuteOfDay {
		return "", fmt.Errorf("%w: %s%+d", ErrTimeOutOfRange, t, delta)
	}

	return FromMinutes(result), nil
}

// IsBefore строго раньше other. Некорректные значения не сравниваются.
func (t TimeString) IsBefore(other TimeString) bool {
	a, errA := t.Minutes()
	b, errB := other.Minutes()
	return errA == nil && errB == nil && a < b
}

// IsAfter строго позже other
func (t TimeString) IsAfter(other TimeString) bool {
	a, errA := t.Minutes()
	b, errB := other.Minutes()
	return errA == nil && errB == nil && a > b
}

// IsZero true, если время не задано
func (t TimeString) IsZero() bool {
	return strings.TrimSpace(string(t)) == ""
}

// Validate проверяет формат
func (t TimeString) Validate() error {
	_, err := t.Minutes()
	return err
}

// String возвращает нормализованное "HH:MM", либо исходное значение, если оно некорректно
func (t TimeString) String() string {
	minutes, err := t.Minutes()
	if err != nil {
		return string(t)
	}
	return string(FromMinutes(minutes))
}

// Scan реализует sql.Scanner. Значение сохраняется как есть даже при неверном формате.
func (t *TimeString) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = ""
	case string:
		*t = TimeString(v)
	case []byte:
		*t = TimeString(string(v))
	case time.Time:
		*t = NewTimeString(v)
	default:
		return fmt.Errorf("%w: unsupported scan type %T", ErrInvalidTimeFormat, src)
	}
	return nil
}

// Value реализует driver.Valuer
func (t TimeString) Value() (driver.Value, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t.String(), nil
}
