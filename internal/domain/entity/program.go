package entity

import "github.com/shopspring/decimal"

// Program is a subsidy program offered through the portal
type Program struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	DefaultAmount decimal.Decimal `json:"default_amount"`
	Active        bool            `json:"active"`
}
