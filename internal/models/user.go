package models

import "time"

// Admin is a privileged operator. Exactly one entry is the owner.
type Admin struct {
	UserID  int64 `json:"user_id" bson:"user_id"`
	IsOwner bool  `json:"is_owner" bson:"is_owner"`
}

// User is an entry in the registry of everyone who has started the bot.
type User struct {
	UserID     int64     `json:"user_id" bson:"user_id"`
	Username   string    `json:"username,omitempty" bson:"username"`
	FirstName  string    `json:"first_name,omitempty" bson:"first_name"`
	LastName   string    `json:"last_name,omitempty" bson:"last_name"`
	LastActive time.Time `json:"last_active" bson:"last_active"`
}

// Stats holds the aggregate counts shown on the dashboard.
type Stats struct {
	Users   int64 `json:"users"`
	Batches int64 `json:"batches"`
	Files   int64 `json:"files"`
	Groups  int64 `json:"groups"`
	Admins  int64 `json:"admins"`
}
