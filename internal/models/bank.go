package models

import (
	"fmt"
	"strings"
	"time"
)

// Bank identifies a known upstream Open-Banking API.
type Bank struct {
	Name      string    `json:"name"`
	BaseURL   string    `json:"base_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the bank registration is valid.
func (b *Bank) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("bank name is required")
	}
	if strings.ContainsAny(b.Name, " ./") {
		return fmt.Errorf("bank name must be a short identifier, got %q", b.Name)
	}
	if b.BaseURL == "" {
		return fmt.Errorf("base URL is required for bank %s", b.Name)
	}
	return nil
}

// BankSlice is a slice of banks with helper methods.
type BankSlice []Bank

// FindByName returns a bank by name.
func (bs BankSlice) FindByName(name string) (*Bank, bool) {
	for i := range bs {
		if bs[i].Name == name {
			return &bs[i], true
		}
	}
	return nil, false
}

// Names returns the bank names in order.
func (bs BankSlice) Names() []string {
	names := make([]string, 0, len(bs))
	for _, b := range bs {
		names = append(names, b.Name)
	}
	return names
}
