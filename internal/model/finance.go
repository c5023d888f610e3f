package model

import "strings"

// PaymentStatus enumerates payment settlement states.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment records money received against an appointment.
type Payment struct {
	Meta
	AppointmentID string        `json:"appointmentId"`
	Amount        float64       `json:"amount"`
	Method        string        `json:"method,omitempty"` // cash, card, transfer
	Status        PaymentStatus `json:"status"`
	Date          string        `json:"date,omitempty"` // YYYY-MM-DD
	Notes         string        `json:"notes,omitempty"`
}

func (p *Payment) RecordMeta() *Meta { return &p.Meta }

func (p *Payment) SearchText() string {
	return strings.ToLower(strings.Join([]string{p.Method, p.Date, p.Notes}, " "))
}

func (p *Payment) Keys() IndexKeys {
	return IndexKeys{Category: string(p.Status), RefID: p.AppointmentID}
}

// TransactionType classifies ledger entries.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
	TransactionRefund  TransactionType = "refund"
)

// Transaction is a ledger entry, optionally referencing the payment that
// produced it.
type Transaction struct {
	Meta
	PaymentID   string          `json:"paymentId,omitempty"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Date        string          `json:"date"` // YYYY-MM-DD
	Method      string          `json:"method,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (t *Transaction) RecordMeta() *Meta { return &t.Meta }

func (t *Transaction) SearchText() string {
	return strings.ToLower(strings.Join([]string{string(t.Type), t.Method, t.Description}, " "))
}

func (t *Transaction) Keys() IndexKeys {
	return IndexKeys{Category: string(t.Type), RefID: t.PaymentID}
}

// Expense is an outgoing cost (rent, supplies, utilities).
type Expense struct {
	Meta
	Title    string  `json:"title"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category,omitempty"`
	Date     string  `json:"date"` // YYYY-MM-DD
	Notes    string  `json:"notes,omitempty"`
}

func (e *Expense) RecordMeta() *Meta { return &e.Meta }

func (e *Expense) SearchText() string {
	return strings.ToLower(strings.Join([]string{e.Title, e.Category, e.Notes}, " "))
}

func (e *Expense) Keys() IndexKeys { return IndexKeys{Category: e.Category} }

// Validate checks required expense fields.
func (e *Expense) Validate() error {
	if err := e.Meta.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Title) == "" {
		return errFieldRequired("title")
	}
	return nil
}
