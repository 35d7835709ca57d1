package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerResponse represents a customer as exposed via transport layers.
type CustomerResponse struct {
	ID           int64           `json:"id"`
	CustomerName string          `json:"customer_name"`
	Email        string          `json:"email"`
	AddressLine1 string          `json:"address_line_1"`
	AddressLine2 string          `json:"address_line_2,omitempty"`
	City         string          `json:"city"`
	County       string          `json:"county"`
	Postcode     string          `json:"postcode"`
	PhoneNumber  string          `json:"phone_number"`
	CreditLimit  decimal.Decimal `json:"credit_limit"`
	CreditUsed   decimal.Decimal `json:"credit_used"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CustomerRequest carries the writable customer fields.
type CustomerRequest struct {
	CustomerName string          `json:"customer_name"`
	Email        string          `json:"email"`
	AddressLine1 string          `json:"address_line_1"`
	AddressLine2 string          `json:"address_line_2"`
	City         string          `json:"city"`
	County       string          `json:"county"`
	Postcode     string          `json:"postcode"`
	PhoneNumber  string          `json:"phone_number"`
	CreditLimit  decimal.Decimal `json:"credit_limit"`
	CreatedBy    string          `json:"created_by"`
	ModifiedBy   string          `json:"last_modified_by"`
}
