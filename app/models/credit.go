package models

import "time"

// Reasons recorded on credit transactions.
const (
	CreditReasonSignup     = "signup"
	CreditReasonCycle      = "cycle"
	CreditReasonGeneration = "generation"
	CreditReasonRefund     = "refund"
	CreditReasonAdjustment = "adjustment"
)

// CreditAccount holds the spendable credit balance of a user.
type CreditAccount struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Balance   int       `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CreditTransaction is an append-only ledger entry. Reference is unique so a
// grant or charge can be applied at most once.
type CreditTransaction struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Amount       int       `gorm:"not null" json:"amount"`
	BalanceAfter int       `gorm:"not null" json:"balance_after"`
	Reason       string    `gorm:"type:varchar(32);not null;index" json:"reason"`
	Reference    string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"reference"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
