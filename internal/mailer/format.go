package mailer

import (
	"fmt"
	"time"
)

const (
	deadlineLayout = "02/01/2006 às 15:04"
	stampLayout    = "02/01/2006 15:04"
	openedLayout   = "02/01/2006 - 15:04"
)

// FormatDeadline renders a deadline as DD/MM/YYYY às HH:MM in loc.
func FormatDeadline(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "Não definido"
	}
	return t.In(loc).Format(deadlineLayout)
}

// FormatTimestamp renders DD/MM/YYYY HH:MM, or N/A when t is nil.
func FormatTimestamp(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "N/A"
	}
	return t.In(loc).Format(stampLayout)
}

// FormatOpened renders the opening timestamp as DD/MM/YYYY - HH:MM.
func FormatOpened(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.In(loc).Format(openedLayout)
}

// FormatElapsed renders a duration as "<N> dia(s) e <H> hora(s)", or
// "<H> hora(s)" when it is under a day.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int((d % (24 * time.Hour)) / time.Hour)
	if days > 0 {
		return fmt.Sprintf("%d dia(s) e %d hora(s)", days, hours)
	}
	return fmt.Sprintf("%d hora(s)", hours)
}

// ResolutionTime is the elapsed time between opening and resolution.
func ResolutionTime(created time.Time, resolved *time.Time) string {
	if created.IsZero() || resolved == nil {
		return "Não disponível"
	}
	return FormatElapsed(resolved.Sub(created))
}

// TimeRemaining describes how long is left until deadline.
func TimeRemaining(deadline *time.Time, now time.Time) string {
	if deadline == nil {
		return "Prazo não definido"
	}
	left := deadline.Sub(now)
	if left < 0 {
		return "Prazo expirado"
	}
	return FormatElapsed(left)
}
