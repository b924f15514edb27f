package model

import "time"

// UniverseSnapshot is a symbol list as retrieved at FetchedAt.
type UniverseSnapshot struct {
	Source    string    `json:"source" dynamodbav:"source"`
	Symbols   []string  `json:"symbols" dynamodbav:"symbols"`
	FetchedAt time.Time `json:"fetched_at" dynamodbav:"fetched_at"`
}

// Expired reports whether the snapshot is older than ttl at now.
func (u *UniverseSnapshot) Expired(now time.Time, ttl time.Duration) bool {
	if u == nil {
		return true
	}
	return !now.Before(u.FetchedAt.Add(ttl))
}
