package models

import "time"

// RequiredGroup is a group every user must belong to before gated actions.
type RequiredGroup struct {
	GroupID int64     `json:"channel_id" bson:"channel_id"`
	AddedAt time.Time `json:"added_at" bson:"added_at"`
}

// GroupInfo is presentation metadata shown to users who are not yet members.
type GroupInfo struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	InviteLink string `json:"invite_link"`
}
