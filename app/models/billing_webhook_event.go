package models

import "time"

// BillingProviderStripe identifies Stripe as the origin of billing data.
const BillingProviderStripe = "stripe"

// BillingWebhookEvent stores provider webhook payloads. Provider and event id
// are unique, which makes delivery retries detectable.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_event,unique,priority:1" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;index:ux_billing_webhook_events_provider_event,unique,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:text;not null" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false" json:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// NeedsProcessing reports whether a stored event still has to be handled:
// it was never processed, or its last attempt failed.
func (e *BillingWebhookEvent) NeedsProcessing() bool {
	return e.ProcessedAt == nil || e.ProcessingError != ""
}
