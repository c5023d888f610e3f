package model

import "strings"

// AppointmentStatus enumerates the appointment lifecycle states.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

// Appointment is a booked slot referencing a customer, a service and
// optionally an employee by id. References are soft: a deleted customer
// leaves the appointment in place with a dangling id.
type Appointment struct {
	Meta
	CustomerID   string            `json:"customerId"`
	ServiceID    string            `json:"serviceId"`
	EmployeeID   string            `json:"employeeId,omitempty"`
	Date         string            `json:"date"`      // YYYY-MM-DD
	StartTime    string            `json:"startTime"` // HH:MM
	EndTime      string            `json:"endTime,omitempty"`
	Status       AppointmentStatus `json:"status"`
	Price        float64           `json:"price,omitempty"`
	CustomerName string            `json:"customerName,omitempty"` // denormalized for search
	ServiceName  string            `json:"serviceName,omitempty"`
	Notes        string            `json:"notes,omitempty"`
}

func (a *Appointment) RecordMeta() *Meta { return &a.Meta }

func (a *Appointment) SearchText() string {
	return strings.ToLower(strings.Join([]string{a.CustomerName, a.ServiceName, a.Date, a.Notes}, " "))
}

func (a *Appointment) Keys() IndexKeys {
	return IndexKeys{Category: string(a.Status), RefID: a.CustomerID}
}

// Validate checks required appointment fields.
func (a *Appointment) Validate() error {
	if err := a.Meta.Validate(); err != nil {
		return err
	}
	if a.Date == "" {
		return errFieldRequired("date")
	}
	switch a.Status {
	case AppointmentScheduled, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return nil
	default:
		return errFieldRequired("status")
	}
}
