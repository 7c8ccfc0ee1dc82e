package services

import "time"

// User is the public profile returned by the backend.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Email       string    `json:"email,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	DiscordID   string    `json:"discordId,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// TokenValidation is the body of GET /auth/validate.
type TokenValidation struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// LoginResult is what the backend returns after a successful Discord code
// exchange.
type LoginResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
}

// Page is the list envelope used by paged endpoints.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasMore  bool `json:"hasMore"`
}

// ListOptions selects a page.
type ListOptions struct {
	Page     int
	PageSize int
}

type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Author    *User     `json:"author,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	MediaURLs []string  `json:"mediaUrls,omitempty"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
}

type Media struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

type Tournament struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Game            string    `json:"game"`
	Status          string    `json:"status"`
	MaxParticipants int       `json:"maxParticipants"`
	Participants    int       `json:"participants"`
	PrizePool       string    `json:"prizePool,omitempty"`
	StartsAt        time.Time `json:"startsAt"`
}

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	Attendees   int       `json:"attendees"`
}

// RSVPStatus is a reply to an event invitation.
type RSVPStatus string

const (
	RSVPGoing    RSVPStatus = "going"
	RSVPMaybe    RSVPStatus = "maybe"
	RSVPDeclined RSVPStatus = "declined"
)

type Listing struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"sellerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Purchase struct {
	ID        string    `json:"id"`
	ListingID string    `json:"listingId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatRoom struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Members    int    `json:"members"`
	MaxMembers int    `json:"maxMembers"`
}

type ChatMessage struct {
	ID       string    `json:"id"`
	ClientID string    `json:"clientId,omitempty"`
	RoomID   string    `json:"roomId"`
	SenderID string    `json:"senderId"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sentAt"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}
