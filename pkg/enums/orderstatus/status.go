package orderstatus

import (
	"strings"
)

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	parts := strings.Split(s.Name, "_")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// IsTerminal reports whether an order in this status no longer occupies a station.
func (s Status) IsTerminal() bool {
	return s == Statuses.Completed || s == Statuses.Cancelled
}

type Enum struct {
	Pending    Status
	InProgress Status
	Completed  Status
	Cancelled  Status
}

var Statuses = Enum{
	Pending:    Status{Name: "pending"},
	InProgress: Status{Name: "in_progress"},
	Completed:  Status{Name: "completed"},
	Cancelled:  Status{Name: "cancelled"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.InProgress,
	Statuses.Completed,
	Statuses.Cancelled,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
