package domain

import "time"

// GroupCount is one bucket of a grouped count.
type GroupCount struct {
	ID    int64
	Name  string
	Color string
	Count int64
}

// DashboardSnapshot is computed fresh on every call.
type DashboardSnapshot struct {
	Total       int64
	ByStatus    []GroupCount
	ByPriority  []GroupCount
	Urgent      int64
	Overdue     int64
	GeneratedAt time.Time
}

// AdminStats counts active reference rows for the admin panel.
type AdminStats struct {
	ActiveUsers      int64
	ActiveCategories int64
	ActiveStatuses   int64
	ActiveTemplates  int64
}
