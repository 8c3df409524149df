package models

import "time"

// SleepSession is a sleep period. EndTime is nil while the session is open.
type SleepSession struct {
	OwnerID   string     `dynamodbav:"ownerId" json:"ownerId"` // PK
	ID        string     `dynamodbav:"id" json:"id"`           // SK
	StartTime time.Time  `dynamodbav:"startTime,unixtime" json:"startTime"`
	EndTime   *time.Time `dynamodbav:"endTime,unixtime,omitempty" json:"endTime"`
	CreatedBy string     `dynamodbav:"createdBy,omitempty" json:"createdBy,omitempty"`
}

// IsOpen reports whether the session has not been ended yet
func (s SleepSession) IsOpen() bool {
	return s.EndTime == nil
}

// OpenSleepMarker pins the single open session of an owner
type OpenSleepMarker struct {
	OwnerID   string    `dynamodbav:"ownerId" json:"ownerId"`
	SessionID string    `dynamodbav:"sessionId" json:"sessionId"`
	StartTime time.Time `dynamodbav:"startTime,unixtime" json:"startTime"`
}

// DynamoDB table and index names for sleep data
const (
	SleepTable          = "Sleep"
	SleepStartTimeIndex = "OwnerStartTimeIndex"
	OpenSleepTable      = "OpenSleep"
)

// RecentSleepLimit is how many sessions the sleep tracker lists
const RecentSleepLimit = 5

// SleepState is what the sleep tracker view renders
type SleepState struct {
	Sleeping       bool           `json:"sleeping"`
	CurrentSleepID string         `json:"currentSleepId,omitempty"`
	Recent         []SleepSession `json:"recent"`
}
