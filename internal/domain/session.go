package domain

import "time"

type Session struct {
	SessionID string    `json:"id" dynamodbav:"session_id"`
	AccountID string    `json:"account_id" dynamodbav:"account_id"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at,unixtime"`
	ExpiresAt time.Time `json:"expires" dynamodbav:"expires_at,unixtime"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
