package models

import "time"

// Stats holds the rolling averages for a set of records. Nil means no valid samples.
type Stats struct {
	FeedCount               int
	SleepCount              int
	AvgFeedIntervalMinutes  *float64
	AvgSleepDurationMinutes *float64
	AvgWakeDurationMinutes  *float64
}

// StatsView is the rendered statistics card
type StatsView struct {
	FeedCount               int    `json:"feedCount"`
	SleepCount              int    `json:"sleepCount"`
	AvgFeedIntervalMinutes  *int   `json:"avgFeedIntervalMinutes,omitempty"`
	AvgSleepDurationMinutes *int   `json:"avgSleepDurationMinutes,omitempty"`
	AvgWakeDurationMinutes  *int   `json:"avgWakeDurationMinutes,omitempty"`
	AvgFeedInterval         string `json:"avgFeedInterval,omitempty"`
	AvgSleepDuration        string `json:"avgSleepDuration,omitempty"`
	AvgWakeDuration         string `json:"avgWakeDuration,omitempty"`
}

// FeedMarker is a feed dot on the timeline
type FeedMarker struct {
	Position float64   `json:"position"`
	Type     string    `json:"type"`
	AmountMl int       `json:"amountMl"`
	At       time.Time `json:"at"`
}

// SleepBar is a sleep period on the timeline
type SleepBar struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Width float64 `json:"width"`
	Open  bool    `json:"open"`
}

// HourMarker is a labelled gridline on the timeline
type HourMarker struct {
	Hour     int     `json:"hour"`
	Label    string  `json:"label"`
	Position float64 `json:"position"`
}

// Timeline is today's records projected onto 0-100% of the day
type Timeline struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	Now         float64      `json:"now"`
	Hours       []HourMarker `json:"hours"`
	Feeds       []FeedMarker `json:"feeds"`
	Sleeps      []SleepBar   `json:"sleeps"`
}

// Status is the one-line "baby has last eaten..." summary
type Status struct {
	HasData           bool       `json:"hasData"`
	LastFeedAt        *time.Time `json:"lastFeedAt,omitempty"`
	LastFeedText      string     `json:"lastFeedText"`
	RecentWindowHours int        `json:"recentWindowHours"`
	RecentAmountMl    int        `json:"recentAmountMl"`
	SleepStatus       string     `json:"sleepStatus"`
	SleepSince        *time.Time `json:"sleepSince,omitempty"`
	SleepText         string     `json:"sleepText"`
}
