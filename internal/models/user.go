package models

import "time"

type User struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	FullName         string     `json:"fullName"`
	PasswordHash     string     `json:"-"`
	AvatarURL        string     `json:"avatarUrl"`
	CoverImageURL    *string    `json:"coverImageUrl,omitempty"`
	RefreshTokenHash *string    `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
}

func (u *User) GetCoverImageURL() string {
	if u.CoverImageURL != nil {
		return *u.CoverImageURL
	}
	return ""
}

// Subscription is an edge record: subscriber follows channel. Both sides
// reference users; a channel is just a user viewed as the followed side.
type Subscription struct {
	ID           string    `json:"id"`
	SubscriberID string    `json:"subscriberId"`
	ChannelID    string    `json:"channelId"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ChannelProfile struct {
	ID                string  `json:"id"`
	Username          string  `json:"username"`
	FullName          string  `json:"fullName"`
	Email             string  `json:"email"`
	AvatarURL         string  `json:"avatarUrl"`
	CoverImageURL     *string `json:"coverImageUrl,omitempty"`
	SubscriberCount   int64   `json:"subscriberCount"`
	SubscribedToCount int64   `json:"subscribedToCount"`
	IsSubscribed      bool    `json:"isSubscribed"`
}
