package models

import "time"

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Audit action categories.
const (
	ActionConfiguration = "CONFIGURATION"
	ActionInventory     = "INVENTORY"
	ActionOrder         = "ORDER"
	ActionPayment       = "PAYMENT"
	ActionCoupon        = "COUPON"
)

// SystemActor names entries recorded without an identified user.
const SystemActor = "System"

type AuditLogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"date"`
	User      string    `json:"user"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Severity  Severity  `json:"severity"`
}
