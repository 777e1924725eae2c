package models

import "time"

type Result string

const (
	ResultMatch   Result = "match"
	ResultNoMatch Result = "no_match"
)

type User struct {
	ID        string
	Email     string
	Username  string
	PassHash  []byte
	CreatedAt time.Time
}

// PublicUser is the part of a user that may leave the service.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

type VerificationRecord struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Image1Ref       string    `json:"image1_filename"`
	Image2Ref       string    `json:"image2_filename"`
	Result          Result    `json:"result"`
	ConfidenceScore float64   `json:"confidence_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// VerificationEvent is published once a record has been persisted.
type VerificationEvent struct {
	VerificationID  string    `json:"verification_id"`
	UserID          string    `json:"user_id"`
	Result          Result    `json:"result"`
	ConfidenceScore float64   `json:"confidence_score"`
	CreatedAt       time.Time `json:"created_at"`
}
