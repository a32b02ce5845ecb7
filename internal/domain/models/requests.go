package models

// Requests for the read-only HTTP endpoints. Defined in domain for consistency and reuse.

type RecommendationsRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type PerformanceRequest struct {
	BotID string `query:"bot_id" json:"bot_id"`
}

type OutcomesRequest struct {
	BotID string `query:"bot_id" json:"bot_id" validate:"required"`
	Limit int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}
