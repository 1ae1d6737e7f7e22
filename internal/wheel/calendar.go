// Package wheel lays out the year ring: twelve month sectors with one day
// marker per day, and resolves a calendar date to its marker position.
package wheel

import "time"

// IsLeap reports whether year has 366 days.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns 365 or 366.
func DaysInYear(year int) int {
	if IsLeap(year) {
		return 366
	}
	return 365
}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysInMonth returns the number of days of month (1-12) in year, or 0 for
// an invalid month.
func DaysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if month == 2 && IsLeap(year) {
		return 29
	}
	return monthDays[month-1]
}

// ValidDate reports whether (month, day) exists in year.
func ValidDate(year, month, day int) bool {
	return day >= 1 && day <= DaysInMonth(year, month)
}

// DayOfYear returns the 1-based ordinal of the date, or 0 when invalid.
func DayOfYear(year, month, day int) int {
	if !ValidDate(year, month, day) {
		return 0
	}
	n := day
	for m := 1; m < month; m++ {
		n += DaysInMonth(year, m)
	}
	return n
}

// CurrentYear returns the calendar year of now in local time.
func CurrentYear() int {
	return time.Now().Year()
}
