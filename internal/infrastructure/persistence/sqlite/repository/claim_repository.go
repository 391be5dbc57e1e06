package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	domainclaim "claimflow/internal/domain/claim"
	"claimflow/internal/errs"
	"claimflow/internal/infrastructure/persistence/sqlite/model"
	"claimflow/internal/ports"
)

type ClaimRepository struct {
	db *gorm.DB
}

var _ ports.ClaimRepository = (*ClaimRepository)(nil)

func NewClaimRepository(db *gorm.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func (r *ClaimRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func (r *ClaimRepository) GetClaim(ctx context.Context, claimID string) (domainclaim.Claim, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return domainclaim.Claim{}, err
	}

	row, err := getClaimRow(db, claimID)
	if err != nil {
		return domainclaim.Claim{}, err
	}

	claims, err := hydrateClaims(db, []model.Claim{row})
	if err != nil {
		return domainclaim.Claim{}, err
	}
	return claims[0], nil
}

func (r *ClaimRepository) ListClaims(ctx context.Context, filter ports.ClaimFilter) ([]domainclaim.Claim, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Claim{})
	if customerID := strings.TrimSpace(filter.CustomerID); customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var rows []model.Claim
	if err := query.Order("created_at asc").Order("claim_id asc").Find(&rows).Error; err != nil {
		return nil, storeFailure(err, "query claims")
	}
	return hydrateClaims(db, rows)
}

func (r *ClaimRepository) ListComments(ctx context.Context, claimID string) ([]domainclaim.Comment, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := getClaimRow(db, claimID); err != nil {
		return nil, err
	}

	var rows []model.Comment
	if err := db.
		Where("claim_id = ?", claimID).
		Order("comment_id asc").
		Find(&rows).Error; err != nil {
		return nil, storeFailure(err, "query comments")
	}

	items := make([]domainclaim.Comment, 0, len(rows))
	for _, row := range rows {
		item, err := mapComment(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *ClaimRepository) PolicyNumberExists(ctx context.Context, policyNumber string) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.Claim{}).
		Where("policy_number = ?", strings.TrimSpace(policyNumber)).
		Count(&count).Error; err != nil {
		return false, storeFailure(err, "count policy number")
	}
	return count > 0, nil
}

// CreateClaim checks the policy number inside the write transaction; the unique
// index catches writers that pass the check concurrently.
func (r *ClaimRepository) CreateClaim(ctx context.Context, claim domainclaim.Claim) (domainclaim.Claim, error) {
	if ports.InTx(ctx) {
		db, err := r.dbFromContext(ctx)
		if err != nil {
			return domainclaim.Claim{}, err
		}

		exists, err := r.PolicyNumberExists(ctx, claim.PolicyNumber)
		if err != nil {
			return domainclaim.Claim{}, err
		}
		if exists {
			return domainclaim.Claim{}, fmt.Errorf("%w: %q", domainclaim.ErrDuplicatePolicyNumber, claim.PolicyNumber)
		}

		row := model.Claim{
			ClaimID:      claim.ID,
			CustomerID:   claim.CustomerID,
			PolicyNumber: claim.PolicyNumber,
			ClaimType:    claim.ClaimType,
			Description:  claim.Description,
			ClaimAmount:  claim.ClaimAmount,
			Status:       string(claim.Status),
			SupervisorID: claim.SupervisorID,
			CreatedAt:    formatTime(claim.CreatedAt),
			UpdatedAt:    formatTime(claim.UpdatedAt),
			DecidedAt:    formatTimePtr(claim.DecidedAt),
		}
		if err := db.Create(&row).Error; err != nil {
			if isDuplicateKey(err) {
				return domainclaim.Claim{}, fmt.Errorf("%w: %q", domainclaim.ErrDuplicatePolicyNumber, claim.PolicyNumber)
			}
			return domainclaim.Claim{}, storeFailure(err, "insert claim")
		}

		if len(claim.DocumentURLs) > 0 {
			docRows := make([]model.ClaimDocument, 0, len(claim.DocumentURLs))
			for i, url := range claim.DocumentURLs {
				docRows = append(docRows, model.ClaimDocument{
					ClaimID:  row.ClaimID,
					Position: i,
					URL:      url,
				})
			}
			if err := db.Create(&docRows).Error; err != nil {
				return domainclaim.Claim{}, storeFailure(err, "insert claim documents")
			}
		}

		return r.GetClaim(ctx, row.ClaimID)
	}

	var created domainclaim.Claim
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := ports.WithTxContext(ctx, tx)
		item, err := r.CreateClaim(txCtx, claim)
		if err != nil {
			return err
		}
		created = item
		return nil
	}); err != nil {
		return domainclaim.Claim{}, err
	}
	return created, nil
}

func (r *ClaimRepository) AppendComment(ctx context.Context, input ports.CommentCreate) (domainclaim.Comment, error) {
	if ports.InTx(ctx) {
		db, err := r.dbFromContext(ctx)
		if err != nil {
			return domainclaim.Comment{}, err
		}

		if _, err := getClaimRow(db, input.ClaimID); err != nil {
			return domainclaim.Comment{}, err
		}

		row := model.Comment{
			ClaimID:    input.ClaimID,
			AuthorID:   input.AuthorID,
			AuthorName: input.AuthorName,
			Text:       input.Text,
			CreatedAt:  formatTime(input.CreatedAt),
		}
		if err := db.Create(&row).Error; err != nil {
			return domainclaim.Comment{}, storeFailure(err, "insert comment")
		}

		if err := db.Model(&model.Claim{}).
			Where("claim_id = ?", input.ClaimID).
			Update("updated_at", row.CreatedAt).Error; err != nil {
			return domainclaim.Comment{}, storeFailure(err, "touch claim updated_at")
		}

		return mapComment(row)
	}

	var created domainclaim.Comment
	if err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := ports.WithTxContext(ctx, tx)
		item, err := r.AppendComment(txCtx, input)
		if err != nil {
			return err
		}
		created = item
		return nil
	}); err != nil {
		return domainclaim.Comment{}, err
	}
	return created, nil
}

// CompareAndSetStatus issues a single conditional UPDATE so two writers racing
// on the same claim cannot both see PENDING.
func (r *ClaimRepository) CompareAndSetStatus(ctx context.Context, change ports.StatusChange) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	at := formatTime(change.At)
	result := db.Model(&model.Claim{}).
		Where("claim_id = ? AND status = ?", change.ClaimID, string(change.Expected)).
		Updates(map[string]any{
			"status":        string(change.Next),
			"supervisor_id": change.SupervisorID,
			"decided_at":    at,
			"updated_at":    at,
		})
	if result.Error != nil {
		return storeFailure(result.Error, "update claim status")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	current, err := getClaimRow(db, change.ClaimID)
	if err != nil {
		return err
	}
	return domainclaim.EnsureTransition(change.ClaimID, domainclaim.Status(current.Status), change.Next)
}

func (r *ClaimRepository) AssignSupervisor(ctx context.Context, claimID string, supervisorID string, at time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Claim{}).
		Where("claim_id = ? AND status = ?", claimID, string(domainclaim.StatusPending)).
		Updates(map[string]any{
			"supervisor_id": supervisorID,
			"updated_at":    formatTime(at),
		})
	if result.Error != nil {
		return storeFailure(result.Error, "update claim supervisor")
	}
	if result.RowsAffected > 0 {
		return nil
	}

	current, err := getClaimRow(db, claimID)
	if err != nil {
		return err
	}
	return domainclaim.EnsureAssignable(claimID, domainclaim.Status(current.Status))
}

func getClaimRow(db *gorm.DB, claimID string) (model.Claim, error) {
	var row model.Claim
	if err := db.Where("claim_id = ?", claimID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Claim{}, fmt.Errorf("%w: %q", domainclaim.ErrNotFound, claimID)
		}
		return model.Claim{}, storeFailure(err, "query claim")
	}
	return row, nil
}

// hydrateClaims loads documents and comments for all rows with two queries.
func hydrateClaims(db *gorm.DB, rows []model.Claim) ([]domainclaim.Claim, error) {
	if len(rows) == 0 {
		return []domainclaim.Claim{}, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ClaimID)
	}

	var docRows []model.ClaimDocument
	if err := db.
		Where("claim_id IN ?", ids).
		Order("claim_id asc").
		Order("position asc").
		Find(&docRows).Error; err != nil {
		return nil, storeFailure(err, "query claim documents")
	}
	docs := make(map[string][]string, len(rows))
	for _, row := range docRows {
		docs[row.ClaimID] = append(docs[row.ClaimID], row.URL)
	}

	var commentRows []model.Comment
	if err := db.
		Where("claim_id IN ?", ids).
		Order("comment_id asc").
		Find(&commentRows).Error; err != nil {
		return nil, storeFailure(err, "query claim comments")
	}
	comments := make(map[string][]domainclaim.Comment, len(rows))
	for _, row := range commentRows {
		item, err := mapComment(row)
		if err != nil {
			return nil, err
		}
		comments[row.ClaimID] = append(comments[row.ClaimID], item)
	}

	items := make([]domainclaim.Claim, 0, len(rows))
	for _, row := range rows {
		item, err := mapClaim(row, docs[row.ClaimID], comments[row.ClaimID])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mapClaim(row model.Claim, docs []string, comments []domainclaim.Comment) (domainclaim.Claim, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return domainclaim.Claim{}, errs.Wrapf(err, "parse created_at of claim %s", row.ClaimID)
	}
	updatedAt, err := parseTime(row.UpdatedAt)
	if err != nil {
		return domainclaim.Claim{}, errs.Wrapf(err, "parse updated_at of claim %s", row.ClaimID)
	}
	decidedAt, err := parseTimePtr(row.DecidedAt)
	if err != nil {
		return domainclaim.Claim{}, errs.Wrapf(err, "parse decided_at of claim %s", row.ClaimID)
	}

	if docs == nil {
		docs = []string{}
	}
	if comments == nil {
		comments = []domainclaim.Comment{}
	}

	return domainclaim.Claim{
		ID:           row.ClaimID,
		CustomerID:   row.CustomerID,
		PolicyNumber: row.PolicyNumber,
		ClaimType:    row.ClaimType,
		Description:  row.Description,
		ClaimAmount:  row.ClaimAmount,
		DocumentURLs: docs,
		Status:       domainclaim.Status(row.Status),
		SupervisorID: row.SupervisorID,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		DecidedAt:    decidedAt,
		Comments:     comments,
	}, nil
}

func mapComment(row model.Comment) (domainclaim.Comment, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return domainclaim.Comment{}, errs.Wrapf(err, "parse created_at of comment %d", row.CommentID)
	}
	return domainclaim.Comment{
		ID:         row.CommentID,
		ClaimID:    row.ClaimID,
		AuthorID:   row.AuthorID,
		AuthorName: row.AuthorName,
		Text:       row.Text,
		CreatedAt:  createdAt,
	}, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key")
}

// storeFailure wraps an unexpected database error and records where it surfaced.
func storeFailure(err error, op string) error {
	return errs.WithStack(errs.Wrap(err, op))
}
