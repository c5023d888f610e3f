package model

import "strings"

// Service is a priced salon offering (haircut, manicure, ...).
type Service struct {
	Meta
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	DurationMin int     `json:"durationMin,omitempty"`
	Category    string  `json:"category,omitempty"`
	Active      bool    `json:"active"`
}

func (s *Service) RecordMeta() *Meta { return &s.Meta }

func (s *Service) SearchText() string {
	return strings.ToLower(strings.Join([]string{s.Name, s.Description, s.Category}, " "))
}

func (s *Service) Keys() IndexKeys { return IndexKeys{Category: s.Category} }

// Validate checks required service fields.
func (s *Service) Validate() error {
	if err := s.Meta.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(s.Name) == "" {
		return errFieldRequired("name")
	}
	if s.Price < 0 {
		return errFieldRequired("non-negative price")
	}
	return nil
}
