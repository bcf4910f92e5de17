// Package timeutil provides timezone utilities for the São Paulo timezone
// (UTC-3). Trade timestamps are localized here before time-of-day and weekend
// badge rules look at them, and challenge day boundaries follow this zone.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// SaoPauloTZ is the São Paulo timezone (UTC-3, no DST).
// Brazil abolished DST in 2019, so this is constant year-round.
var SaoPauloTZ = time.FixedZone("America/Sao_Paulo", -3*60*60)

// Now returns the current time in São Paulo timezone.
func Now() time.Time {
	return time.Now().In(SaoPauloTZ)
}

// ToLocal converts a time to São Paulo timezone.
func ToLocal(t time.Time) time.Time {
	return t.In(SaoPauloTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in São Paulo timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, SaoPauloTZ)
}

// DateTime creates a time in São Paulo timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, SaoPauloTZ)
}

// StartOfDay returns the start of the day (00:00:00) in São Paulo timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, SaoPauloTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in São Paulo timezone.
func EndOfDay(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, SaoPauloTZ)
}

// StartOfWeek returns the start of the week (Monday 00:00:00) in São Paulo timezone.
func StartOfWeek(t time.Time) time.Time {
	local := ToLocal(t)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(local.AddDate(0, 0, -daysToSubtract))
}

// EndOfWeek returns the end of the week (Sunday 23:59:59) in São Paulo timezone.
func EndOfWeek(t time.Time) time.Time {
	start := StartOfWeek(t)
	return EndOfDay(start.AddDate(0, 0, 6))
}

// StartOfMonth returns the start of the month in São Paulo timezone.
func StartOfMonth(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, SaoPauloTZ)
}

// EndOfMonth returns the end of the month in São Paulo timezone.
func EndOfMonth(t time.Time) time.Time {
	start := StartOfMonth(t)
	return EndOfDay(start.AddDate(0, 1, -1))
}

// IsToday checks if the given time is today in São Paulo timezone.
func IsToday(t time.Time) bool {
	now := Now()
	local := ToLocal(t)
	return local.Year() == now.Year() &&
		local.Month() == now.Month() &&
		local.Day() == now.Day()
}

// IsYesterday checks if the given time is yesterday in São Paulo timezone.
func IsYesterday(t time.Time) bool {
	yesterday := Now().AddDate(0, 0, -1)
	local := ToLocal(t)
	return local.Year() == yesterday.Year() &&
		local.Month() == yesterday.Month() &&
		local.Day() == yesterday.Day()
}

// IsThisWeek checks if the given time is in the current week.
func IsThisWeek(t time.Time) bool {
	now := Now()
	weekStart := StartOfWeek(now)
	weekEnd := EndOfWeek(now)
	local := ToLocal(t)
	return !local.Before(weekStart) && !local.After(weekEnd)
}

// DaysSince calculates the number of days since the given time.
func DaysSince(t time.Time) int {
	now := StartOfDay(Now())
	then := StartOfDay(t)
	duration := now.Sub(then)
	return int(duration.Hours() / 24)
}

// Trading session boundaries. The badge rules for early and late trades use
// the same hours: a trade before EarlySessionEnd counts as an early trade,
// a trade at or after LateSessionStart counts as a late one.
const (
	// EarlySessionEnd is the local hour before which a trade is "early" (7:00).
	EarlySessionEnd = 7
	// LateSessionStart is the local hour from which a trade is "late" (22:00).
	LateSessionStart = 22
	// MarketOpenHour is when the B3 session opens (10:00).
	MarketOpenHour = 10
	// MarketCloseHour is when the B3 session closes (18:00).
	MarketCloseHour = 18
)

// IsEarlyTrade checks if the given time is before the early session boundary.
func IsEarlyTrade(t time.Time) bool {
	return ToLocal(t).Hour() < EarlySessionEnd
}

// IsLateTrade checks if the given time is at or after the late session boundary.
func IsLateTrade(t time.Time) bool {
	return ToLocal(t).Hour() >= LateSessionStart
}

// IsMarketHours checks if the given time is within the B3 session (10:00-18:00).
func IsMarketHours(t time.Time) bool {
	hour := ToLocal(t).Hour()
	return hour >= MarketOpenHour && hour < MarketCloseHour
}

// IsWeekend checks if the given time is on a weekend.
func IsWeekend(t time.Time) bool {
	weekday := ToLocal(t).Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}

// IsWorkday checks if the given time is on a workday (Mon-Fri).
func IsWorkday(t time.Time) bool {
	return !IsWeekend(t)
}

// NextWorkday returns the next workday (skipping weekends).
func NextWorkday(t time.Time) time.Time {
	next := ToLocal(t).AddDate(0, 0, 1)
	for IsWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}
	return StartOfDay(next)
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
	// FormatBrazilianDate is the Brazilian date format (DD/MM/YYYY).
	FormatBrazilianDate = "02/01/2006"
	// FormatBrazilianDateTime is the Brazilian datetime format.
	FormatBrazilianDateTime = "02/01/2006 15:04"
	// FormatHumanDate is a human-readable format.
	FormatHumanDate = "2 January 2006"
	// FormatShortDate is a short format (Jan 2).
	FormatShortDate = "Jan 2"
)

// FormatLocal formats a time in São Paulo timezone with the given layout.
func FormatLocal(t time.Time, layout string) string {
	return ToLocal(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in São Paulo timezone.
func FormatDateStr(t time.Time) string {
	return FormatLocal(t, FormatDate)
}

// FormatTimeStr formats a time as a time string (HH:MM) in São Paulo timezone.
func FormatTimeStr(t time.Time) string {
	return FormatLocal(t, FormatTime)
}

// FormatDateTimeStr formats a time as datetime string in São Paulo timezone.
func FormatDateTimeStr(t time.Time) string {
	return FormatLocal(t, FormatDateTime)
}

// FormatBrazilian formats a time in Brazilian format (DD/MM/YYYY).
func FormatBrazilian(t time.Time) string {
	return FormatLocal(t, FormatBrazilianDate)
}

// FormatRelative returns a human-readable relative time string.
func FormatRelative(t time.Time) string {
	now := Now()
	local := ToLocal(t)
	duration := now.Sub(local)

	if duration < 0 {
		duration = -duration
		return formatFutureDuration(duration)
	}

	return formatPastDuration(duration)
}

func formatPastDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "agora mesmo"
	case d < time.Hour:
		mins := int(d.Minutes())
		return fmt.Sprintf("há %d min", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		return fmt.Sprintf("há %d h", hours)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "ontem"
		}
		return fmt.Sprintf("há %d dias", days)
	case d < 30*24*time.Hour:
		weeks := int(d.Hours() / 24 / 7)
		return fmt.Sprintf("há %d semanas", weeks)
	default:
		months := int(d.Hours() / 24 / 30)
		if months < 12 {
			return fmt.Sprintf("há %d meses", months)
		}
		years := months / 12
		return fmt.Sprintf("há %d anos", years)
	}
}

func formatFutureDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "agora"
	case d < time.Hour:
		mins := int(d.Minutes())
		return fmt.Sprintf("em %d min", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		return fmt.Sprintf("em %d h", hours)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "amanhã"
		}
		return fmt.Sprintf("em %d dias", days)
	}
}

// ParseLocal parses a time string in São Paulo timezone.
func ParseLocal(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, SaoPauloTZ)
}

// ParseDateLocal parses a date string (YYYY-MM-DD) in São Paulo timezone.
func ParseDateLocal(value string) (time.Time, error) {
	return ParseLocal(FormatDate, value)
}

// ParseDateTimeLocal parses a datetime string in São Paulo timezone.
func ParseDateTimeLocal(value string) (time.Time, error) {
	return ParseLocal(FormatDateTime, value)
}

// Streak and challenge day helpers.

// IsSameDay checks if two times are on the same day in São Paulo timezone.
func IsSameDay(t1, t2 time.Time) bool {
	l1, l2 := ToLocal(t1), ToLocal(t2)
	return l1.Year() == l2.Year() && l1.YearDay() == l2.YearDay()
}

// IsConsecutiveDay checks if t2 is the day after t1.
func IsConsecutiveDay(t1, t2 time.Time) bool {
	l1, l2 := ToLocal(t1), ToLocal(t2)
	nextDay := l1.AddDate(0, 0, 1)
	return IsSameDay(nextDay, l2)
}

// DaysBetween calculates the number of days between two times.
func DaysBetween(t1, t2 time.Time) int {
	l1 := StartOfDay(t1)
	l2 := StartOfDay(t2)
	duration := l2.Sub(l1)
	days := int(duration.Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// WeekdayNamePt returns the Portuguese name for a weekday.
func WeekdayNamePt(t time.Time) string {
	switch ToLocal(t).Weekday() {
	case time.Monday:
		return "Segunda-feira"
	case time.Tuesday:
		return "Terça-feira"
	case time.Wednesday:
		return "Quarta-feira"
	case time.Thursday:
		return "Quinta-feira"
	case time.Friday:
		return "Sexta-feira"
	case time.Saturday:
		return "Sábado"
	case time.Sunday:
		return "Domingo"
	default:
		return ""
	}
}

// MonthNamePt returns the Portuguese name for a month.
func MonthNamePt(m time.Month) string {
	names := []string{
		"", "Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
		"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
	}
	if int(m) >= 1 && int(m) <= 12 {
		return names[m]
	}
	return ""
}
