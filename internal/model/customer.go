package model

import "strings"

// Customer is a salon client record.
type Customer struct {
	Meta
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Birthday    string `json:"birthday,omitempty"` // formatted date, YYYY-MM-DD
	Notes       string `json:"notes,omitempty"`
	TotalVisits int    `json:"totalVisits,omitempty"`
	LastVisit   string `json:"lastVisit,omitempty"`
	Active      bool   `json:"active"`
}

func (c *Customer) RecordMeta() *Meta { return &c.Meta }

func (c *Customer) SearchText() string {
	return strings.ToLower(strings.Join([]string{c.FirstName, c.LastName, c.Phone, c.Email, c.Notes}, " "))
}

func (c *Customer) Keys() IndexKeys { return IndexKeys{} }

// Validate checks required customer fields.
func (c *Customer) Validate() error {
	if err := c.Meta.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.FirstName) == "" {
		return errFieldRequired("firstName")
	}
	return nil
}
