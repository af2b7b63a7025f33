package service

import "time"

// BilledHours rounds the elapsed time up to whole hours, charging at least
// one hour and never less than the location's minimum duration.
func BilledHours(elapsed time.Duration, minHours int) int {
	hours := int(elapsed.Hours())
	if elapsed > time.Duration(hours)*time.Hour {
		hours++
	}
	if hours < 1 {
		hours = 1
	}
	if hours < minHours {
		hours = minHours
	}
	return hours
}

// ComputeFare prices a session: every billed hour at the base rate, plus the
// extension rate for each hour beyond the reservation.
func ComputeFare(baseRate, extensionRate, reservedHours, minHours int, elapsed time.Duration) (fare, billed, extra int) {
	billed = BilledHours(elapsed, minHours)
	extra = billed - reservedHours
	if extra < 0 {
		extra = 0
	}
	fare = baseRate*billed + extensionRate*extra
	return fare, billed, extra
}
