package models

import "time"

// FeedEvent is a single logged feed. Immutable except for deletion.
//
// OwnerID is the tracking identity at creation time, not necessarily the caller.
type FeedEvent struct {
	OwnerID   string    `dynamodbav:"ownerId" json:"ownerId"` // PK
	ID        string    `dynamodbav:"id" json:"id"`           // SK
	Type      string    `dynamodbav:"type" json:"type"`
	AmountMl  int       `dynamodbav:"amountMl" json:"amountMl"`
	Timestamp time.Time `dynamodbav:"timestamp,unixtime" json:"timestamp"`
	CreatedBy string    `dynamodbav:"createdBy,omitempty" json:"createdBy,omitempty"`
}

// FeedsTable is the DynamoDB table name for feed events
const FeedsTable = "Feeds"

// FeedTimestampIndex is the local secondary index ordering feeds by time
const FeedTimestampIndex = "OwnerTimestampIndex"

// FeedSummary holds today's feed totals
type FeedSummary struct {
	Maternal   int         `json:"maternal"`
	Artificial int         `json:"artificial"`
	Total      int         `json:"total"`
	Feeds      []FeedEvent `json:"feeds"`
}
