package domain

import "time"

// Priority is reference data defining SLA hours for a request.
type Priority struct {
	ID              int64
	Name            string
	Order           int
	SLAHours        int
	EscalationHours int
	Active          bool
}

// SLA returns the resolution window.
func (p Priority) SLA() time.Duration {
	return time.Duration(p.SLAHours) * time.Hour
}

// Escalation returns the escalation window.
func (p Priority) Escalation() time.Duration {
	return time.Duration(p.EscalationHours) * time.Hour
}

// Status is a lifecycle state. Finalizing marks work as resolved.
type Status struct {
	ID         int64
	Name       string
	Color      string
	Order      int
	Finalizing bool
	Active     bool
}

// Category groups requests by subject.
type Category struct {
	ID          int64
	Name        string
	Description *string
	Active      bool
}
