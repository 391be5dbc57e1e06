package model

type Comment struct {
	CommentID  uint64 `gorm:"column:comment_id;primaryKey;autoIncrement"`
	ClaimID    string `gorm:"column:claim_id;type:text;not null;index"`
	AuthorID   string `gorm:"column:author_id;type:text;not null"`
	AuthorName string `gorm:"column:author_name;type:text;not null"`
	Text       string `gorm:"column:text;type:text;not null"`
	CreatedAt  string `gorm:"column:created_at;type:text;not null"`
}

func (Comment) TableName() string {
	return "claim_comments"
}
