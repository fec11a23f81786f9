package domain

import (
	"fmt"
	"slices"
	"time"
)

// Request is the aggregate for a support request (solicitação).
type Request struct {
	ID                 int64
	ReferenceCode      string
	Title              string
	Description        string
	ClientID           int64
	CategoryID         int64
	PriorityID         int64
	StatusID           int64
	TechnicianID       *int64
	CreatedByID        *int64
	System             *string
	Module             *string
	Urgent             bool
	Confidential       bool
	ResolutionDeadline *time.Time
	EscalationDeadline *time.Time
	ResolvedAt         *time.Time
	ClosedAt           *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RequestDetail is a request joined with the display data of its references.
type RequestDetail struct {
	Request
	ClientName      string
	ClientEmail     string
	CategoryName    string
	PriorityName    string
	StatusName      string
	StatusColor     string
	TechnicianName  *string
	TechnicianEmail *string
}

const referencePrefix = "OS"

// ReferencePrefix returns the per-day prefix shared by reference codes issued on day.
func ReferencePrefix(day time.Time) string {
	return referencePrefix + day.Format("20060102")
}

// FormatReferenceCode builds OS<YYYYMMDD><4-digit sequence>.
func FormatReferenceCode(day time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", ReferencePrefix(day), seq)
}

// IsOverdue reports whether the resolution deadline has passed while the
// request is still outside the terminal set.
func (r Request) IsOverdue(now time.Time, terminal []int64) bool {
	if r.ResolutionDeadline == nil || slices.Contains(terminal, r.StatusID) {
		return false
	}
	return r.ResolutionDeadline.Before(now)
}

// IsUrgent reports whether the deadline falls inside [now, now+window].
// Overdue requests are not urgent.
func (r Request) IsUrgent(now time.Time, window time.Duration, terminal []int64) bool {
	if r.ResolutionDeadline == nil || slices.Contains(terminal, r.StatusID) {
		return false
	}
	deadline := *r.ResolutionDeadline
	return !deadline.Before(now) && !deadline.After(now.Add(window))
}
