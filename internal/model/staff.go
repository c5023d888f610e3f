package model

import "strings"

// Employee is a staff member of the salon.
type Employee struct {
	Meta
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Active    bool   `json:"active"`
}

func (e *Employee) RecordMeta() *Meta { return &e.Meta }

func (e *Employee) SearchText() string {
	return strings.ToLower(strings.Join([]string{e.FirstName, e.LastName, e.Phone, e.Email, e.Role}, " "))
}

func (e *Employee) Keys() IndexKeys { return IndexKeys{} }

// WorkingHours describes one weekday's opening window, either for the whole
// salon (empty EmployeeID) or for a single staff member.
type WorkingHours struct {
	Meta
	EmployeeID string `json:"employeeId,omitempty"`
	Weekday    int    `json:"weekday"`          // 0 = Sunday ... 6 = Saturday
	Opens      string `json:"opens,omitempty"`  // HH:MM
	Closes     string `json:"closes,omitempty"` // HH:MM
	Closed     bool   `json:"closed,omitempty"`
}

func (w *WorkingHours) RecordMeta() *Meta { return &w.Meta }

func (w *WorkingHours) SearchText() string { return "" }

func (w *WorkingHours) Keys() IndexKeys { return IndexKeys{RefID: w.EmployeeID} }

// Note is free-form text attached to the business.
type Note struct {
	Meta
	Title  string `json:"title,omitempty"`
	Body   string `json:"body,omitempty"`
	Pinned bool   `json:"pinned,omitempty"`
}

func (n *Note) RecordMeta() *Meta { return &n.Meta }

func (n *Note) SearchText() string {
	return strings.ToLower(strings.Join([]string{n.Title, n.Body}, " "))
}

func (n *Note) Keys() IndexKeys { return IndexKeys{} }
