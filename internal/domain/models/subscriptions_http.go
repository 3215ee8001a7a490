package models

// Requests and responses for the subscription HTTP endpoints.

type TierCheckRequest struct {
	UserID string `query:"user_id" json:"user_id" validate:"required,max=128"`
}

type TierCheckResponse struct {
	UserID string `json:"user_id"`
	Tier   Tier   `json:"tier"`
}
