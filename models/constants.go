package models

// ✅ Feed Types
const (
	FeedTypeMaternal   = "maternal"
	FeedTypeArtificial = "artificial"
)

// ✅ Sleep Statuses (as shown on the status card)
const (
	SleepStatusAsleep  = "asleep"
	SleepStatusAwake   = "awake"
	SleepStatusUnknown = "unknown"
)

// ✅ Change Reasons carried in realtime refresh signals
const (
	ReasonFeedAdded    = "feed_added"
	ReasonFeedDeleted  = "feed_deleted"
	ReasonSleepStarted = "sleep_started"
	ReasonSleepEnded   = "sleep_ended"
	ReasonSleepDeleted = "sleep_deleted"
	ReasonCleared      = "cleared"
	ReasonJoined       = "joined"
	ReasonDisconnected = "disconnected"
)
