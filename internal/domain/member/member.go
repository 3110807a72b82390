package member

import (
	"strings"
	"time"
)

// Member represents a church member on the roster. The engine only reads
// members; all mutation happens elsewhere in the admin tool.
type Member struct {
	ID          string
	ChurchID    string
	FirstName   string
	LastName    string
	DateOfBirth *time.Time // year may be a placeholder; only month/day are trusted
	BacentaID   string     // smallest organizational unit the member belongs to
	Role        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasBirthday reports whether a birth month/day is known for this member.
func (m *Member) HasBirthday() bool {
	return m.DateOfBirth != nil
}

func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}
