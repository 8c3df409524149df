package models

import "time"

// ShareCodeLength is the number of characters in a share code
const ShareCodeLength = 6

// ShareLink is a redeemable code that lets another parent track ownerId's records
type ShareLink struct {
	Code      string    `dynamodbav:"code" json:"code"` // PK
	OwnerID   string    `dynamodbav:"ownerId" json:"ownerId"`
	CreatedAt time.Time `dynamodbav:"createdAt" json:"createdAt"`
	ExpiresAt time.Time `dynamodbav:"expiresAt,unixtime" json:"expiresAt"` // DynamoDB TTL attribute
}

// Expired reports whether the link can no longer be redeemed at now
func (l ShareLink) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !now.Before(l.ExpiresAt)
}

// Connection redirects subjectId's reads and writes to connectedTo's records
type Connection struct {
	SubjectID   string    `dynamodbav:"subjectId" json:"subjectId"` // PK, the joining identity
	ConnectedTo string    `dynamodbav:"connectedTo" json:"connectedTo"`
	ConnectedAt time.Time `dynamodbav:"connectedAt" json:"connectedAt"`
}

// DynamoDB table names for sharing
const (
	SharesTable      = "Shares"
	ConnectionsTable = "Connections"
)

// Identity describes who is calling and whose records they see
type Identity struct {
	CallerID   string `json:"callerId"`
	TrackingID string `json:"trackingId"`
	Linked     bool   `json:"linked"`
}
