package dto

import "time"

// CreateInstallationRequest payload.
type CreateInstallationRequest struct {
	CustomerID           *int64  `json:"customer_id"`
	CustomerName         string  `json:"customer_name" validate:"required,max=255"`
	Address              string  `json:"address" validate:"required"`
	ContactNumber        string  `json:"contact_number" validate:"required,max=50"`
	ScheduledDate        string  `json:"scheduled_date" validate:"required,datetime_any"`
	Technician           string  `json:"technician" validate:"max=255"`
	AssignedTechnicianID *int64  `json:"assigned_technician_id"`
	Equipment            *string `json:"equipment"`
	Notes                *string `json:"notes"`
}

// UpdateInstallationRequest payload. Absent fields stay unchanged.
type UpdateInstallationRequest struct {
	CustomerName         *string `json:"customer_name" validate:"omitempty,max=255"`
	Address              *string `json:"address"`
	ContactNumber        *string `json:"contact_number" validate:"omitempty,max=50"`
	ScheduledDate        *string `json:"scheduled_date" validate:"omitempty,datetime_any"`
	Technician           *string `json:"technician" validate:"omitempty,max=255"`
	AssignedTechnicianID *int64  `json:"assigned_technician_id"`
	Equipment            *string `json:"equipment"`
	Notes                *string `json:"notes"`
}

// ScheduleInstallationRequest payload.
type ScheduleInstallationRequest struct {
	ScheduledDate        string `json:"scheduled_date" validate:"required,datetime_any"`
	Technician           string `json:"technician" validate:"max=255"`
	AssignedTechnicianID *int64 `json:"assigned_technician_id"`
}

// CompleteInstallationRequest payload.
type CompleteInstallationRequest struct {
	Notes string `json:"notes"`
}

// CancelInstallationRequest payload.
type CancelInstallationRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// InstallationResponse is the installation representation.
type InstallationResponse struct {
	ID                   int64     `json:"id"`
	InstallationNumber   string    `json:"installation_number"`
	CustomerID           *int64    `json:"customer_id"`
	CustomerName         string    `json:"customer_name"`
	Address              string    `json:"address"`
	ContactNumber        string    `json:"contact_number"`
	ScheduledDate        time.Time `json:"scheduled_date"`
	Technician           string    `json:"technician"`
	AssignedTechnicianID *int64    `json:"assigned_technician_id"`
	Equipment            *string   `json:"equipment"`
	Status               string    `json:"status"`
	Notes                *string   `json:"notes"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}
