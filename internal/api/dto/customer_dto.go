package dto

import "time"

// CreateCustomerRequest payload. An empty account number is generated.
type CreateCustomerRequest struct {
	CustomerName     string  `json:"customer_name" validate:"required,max=255"`
	AccountNumber    string  `json:"account_number" validate:"max=50"`
	PrimaryPhone     string  `json:"primary_phone" validate:"required,max=50"`
	EmailAddress     *string `json:"email_address" validate:"omitempty,email"`
	PhysicalAddress  *string `json:"physical_address"`
	ServicePackage   string  `json:"service_package" validate:"omitempty,service_package"`
	Status           string  `json:"status" validate:"omitempty,customer_status"`
	InstallationDate string  `json:"installation_date" validate:"omitempty,datetime_any"`
}

// UpdateCustomerRequest payload. Absent fields stay unchanged.
type UpdateCustomerRequest struct {
	CustomerName     *string `json:"customer_name" validate:"omitempty,max=255"`
	PrimaryPhone     *string `json:"primary_phone" validate:"omitempty,max=50"`
	EmailAddress     *string `json:"email_address" validate:"omitempty,email"`
	PhysicalAddress  *string `json:"physical_address"`
	ServicePackage   *string `json:"service_package" validate:"omitempty,service_package"`
	Status           *string `json:"status" validate:"omitempty,customer_status"`
	InstallationDate *string `json:"installation_date" validate:"omitempty,datetime_any"`
}

// CustomerResponse is the customer representation.
type CustomerResponse struct {
	ID               int64            `json:"id"`
	CustomerName     string           `json:"customer_name"`
	AccountNumber    string           `json:"account_number"`
	PrimaryPhone     string           `json:"primary_phone"`
	EmailAddress     *string          `json:"email_address"`
	PhysicalAddress  *string          `json:"physical_address"`
	ServicePackage   string           `json:"service_package"`
	Status           string           `json:"status"`
	InstallationDate time.Time        `json:"installation_date"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Tickets          []TicketResponse `json:"tickets,omitempty"`
}
