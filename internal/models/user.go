package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account.
type User struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Pseudo    string    `json:"pseudo"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Pseudo    string    `json:"pseudo"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Pseudo:    u.Pseudo,
		CreatedAt: u.CreatedAt,
	}
}

// Owner is the name/email projection of a recording's owner embedded
// in recording responses.
type Owner struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}
