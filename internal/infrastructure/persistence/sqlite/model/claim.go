package model

import "github.com/shopspring/decimal"

type Claim struct {
	ClaimID      string          `gorm:"column:claim_id;type:text;primaryKey"`
	CustomerID   string          `gorm:"column:customer_id;type:text;not null;index"`
	PolicyNumber string          `gorm:"column:policy_number;type:text;not null;uniqueIndex"`
	ClaimType    string          `gorm:"column:claim_type;type:text;not null"`
	Description  string          `gorm:"column:description;type:text;not null"`
	ClaimAmount  decimal.Decimal `gorm:"column:claim_amount;type:text;not null"`
	Status       string          `gorm:"column:status;type:text;not null;index"`
	SupervisorID *string         `gorm:"column:supervisor_id;type:text"`
	CreatedAt    string          `gorm:"column:created_at;type:text;not null"`
	UpdatedAt    string          `gorm:"column:updated_at;type:text;not null"`
	DecidedAt    *string         `gorm:"column:decided_at;type:text"`
}

func (Claim) TableName() string {
	return "claims"
}
