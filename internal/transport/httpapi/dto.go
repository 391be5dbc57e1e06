package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	domainclaim "claimflow/internal/domain/claim"
)

type claimResponse struct {
	ID           string            `json:"id"`
	CustomerID   string            `json:"customerId"`
	PolicyNumber string            `json:"policyNumber"`
	ClaimType    string            `json:"claimType"`
	Description  string            `json:"description"`
	ClaimAmount  decimal.Decimal   `json:"claimAmount"`
	DocumentURLs []string          `json:"documentUrls"`
	Status       string            `json:"status"`
	SupervisorID *string           `json:"supervisorId"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	DecidedAt    *time.Time        `json:"decidedAt"`
	Comments     []commentResponse `json:"comments"`
}

type commentResponse struct {
	ID         uint64    `json:"id"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"createdAt"`
}

type submitClaimRequest struct {
	CustomerID   string          `json:"customerId"`
	PolicyNumber string          `json:"policyNumber"`
	ClaimType    string          `json:"claimType"`
	Description  string          `json:"description"`
	ClaimAmount  decimal.Decimal `json:"claimAmount"`
	DocumentURLs []string        `json:"documentUrls"`
}

type addCommentRequest struct {
	Text string `json:"text"`
}

type decideRequest struct {
	ClaimID      string `json:"claimId"`
	SupervisorID string `json:"supervisorId"`
	Decision     string `json:"decision"`
	Comments     string `json:"comments"`
}

type policyNumberResponse struct {
	PolicyNumber string `json:"policyNumber"`
	CustomerID   string `json:"customerId"`
}

type policyCheckResponse struct {
	PolicyNumber string `json:"policyNumber"`
	Exists       bool   `json:"exists"`
}

func toClaimResponse(c domainclaim.Claim) claimResponse {
	docs := c.DocumentURLs
	if docs == nil {
		docs = []string{}
	}
	return claimResponse{
		ID:           c.ID,
		CustomerID:   c.CustomerID,
		PolicyNumber: c.PolicyNumber,
		ClaimType:    c.ClaimType,
		Description:  c.Description,
		ClaimAmount:  c.ClaimAmount,
		DocumentURLs: docs,
		Status:       string(c.Status),
		SupervisorID: c.SupervisorID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		DecidedAt:    c.DecidedAt,
		Comments:     toCommentResponses(c.Comments),
	}
}

func toClaimResponses(items []domainclaim.Claim) []claimResponse {
	out := make([]claimResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toClaimResponse(item))
	}
	return out
}

func toCommentResponses(items []domainclaim.Comment) []commentResponse {
	out := make([]commentResponse, 0, len(items))
	for _, item := range items {
		out = append(out, commentResponse{
			ID:         item.ID,
			AuthorID:   item.AuthorID,
			AuthorName: item.AuthorName,
			Text:       item.Text,
			CreatedAt:  item.CreatedAt,
		})
	}
	return out
}
