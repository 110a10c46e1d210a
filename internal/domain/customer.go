package domain

import (
	"fmt"
	"time"
)

// CustomerStatus represents the account standing.
type CustomerStatus string

const (
	CustomerStatusActive    CustomerStatus = "Active"
	CustomerStatusSuspended CustomerStatus = "Suspended"
	CustomerStatusInactive  CustomerStatus = "Inactive"
)

var CustomerStatuses = []CustomerStatus{CustomerStatusActive, CustomerStatusSuspended, CustomerStatusInactive}

func ParseCustomerStatus(s string) (CustomerStatus, bool) {
	for _, st := range CustomerStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// ServicePackage is the subscribed bandwidth plan.
type ServicePackage string

const (
	PackageBasic    ServicePackage = "Basic 20Mbps"
	PackageStandard ServicePackage = "Standard 50Mbps"
	PackagePremium  ServicePackage = "Premium 100Mbps"
	PackageBusiness ServicePackage = "Business 200Mbps"
)

var ServicePackages = []ServicePackage{PackageBasic, PackageStandard, PackagePremium, PackageBusiness}

func ParseServicePackage(s string) (ServicePackage, bool) {
	for _, p := range ServicePackages {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// Customer is a subscriber account.
type Customer struct {
	ID               int64
	CustomerName     string
	AccountNumber    string
	PrimaryPhone     string
	EmailAddress     *string
	PhysicalAddress  *string
	ServicePackage   ServicePackage
	Status           CustomerStatus
	InstallationDate time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Tickets []Ticket
}

// FormatAccountNumber renders the public account identifier for sequence value n.
func FormatAccountNumber(n int64) string {
	return fmt.Sprintf("ACC-%04d", n)
}
