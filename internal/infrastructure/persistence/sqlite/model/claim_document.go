package model

// ClaimDocument keeps document urls in submission order.
type ClaimDocument struct {
	ClaimID  string `gorm:"column:claim_id;type:text;not null;primaryKey"`
	Position int    `gorm:"column:position;not null;primaryKey"`
	URL      string `gorm:"column:url;type:text;not null"`
}

func (ClaimDocument) TableName() string {
	return "claim_documents"
}
