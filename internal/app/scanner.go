package app

import (
	"time"

	"birthday_reminder_service/internal/domain/member"
)

// UpcomingBirthday pairs a member with the number of whole days until
// their next birthday relative to a reference date (0 = today).
type UpcomingBirthday struct {
	Member    *member.Member
	DaysUntil int
}

// OffsetSet is the configured set of day-offsets at which reminders fire.
type OffsetSet map[int]struct{}

func NewOffsetSet(offsets []int) OffsetSet {
	set := make(OffsetSet, len(offsets))
	for _, o := range offsets {
		set[o] = struct{}{}
	}
	return set
}

func (s OffsetSet) Contains(days int) bool {
	_, ok := s[days]
	return ok
}

// UpcomingBirthdays filters members down to those whose next birthday is
// exactly one of the configured offsets away from refDate. Members
// without a known birth date are excluded, not an error.
func UpcomingBirthdays(members []*member.Member, offsets OffsetSet, refDate time.Time) []UpcomingBirthday {
	upcoming := make([]UpcomingBirthday, 0)
	for _, m := range members {
		if !m.HasBirthday() {
			continue
		}
		days := DaysUntilBirthday(*m.DateOfBirth, refDate)
		if offsets.Contains(days) {
			upcoming = append(upcoming, UpcomingBirthday{Member: m, DaysUntil: days})
		}
	}
	return upcoming
}

// NextBirthday returns the next occurrence of dob's month/day on or after
// refDate, wrapping to the following year when the date has already
// passed. A Feb-29 birthday is observed on Feb 28 in non-leap years.
func NextBirthday(dob, refDate time.Time) time.Time {
	ref := dateOnly(refDate)
	next := birthdayInYear(dob, ref.Year())
	if next.Before(ref) {
		next = birthdayInYear(dob, ref.Year()+1)
	}
	return next
}

// DaysUntilBirthday computes the whole-day distance from refDate to the
// member's next birthday.
func DaysUntilBirthday(dob, refDate time.Time) int {
	next := NextBirthday(dob, refDate)
	return int(next.Sub(dateOnly(refDate)).Hours() / 24)
}

func birthdayInYear(dob time.Time, year int) time.Time {
	month, day := dob.Month(), dob.Day()
	if month == time.February && day == 29 && !isLeapYear(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// dateOnly drops the time-of-day and pins the calendar day to UTC so day
// arithmetic is exact multiples of 24h.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
