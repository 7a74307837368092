package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered member. PasswordHash and PasswordSalt are base64
// encoded and never serialised.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	PasswordSalt string    `json:"-"`
	Gender       string    `json:"gender"`
	DateOfBirth  time.Time `json:"dateOfBirth"`
	KnownAs      string    `json:"knownAs"`
	CreatedAt    time.Time `json:"created"`
	LastActive   time.Time `json:"lastActive"`
	Introduction string    `json:"introduction"`
	LookingFor   string    `json:"lookingFor"`
	Interests    string    `json:"interests"`
	City         string    `json:"city"`
	Country      string    `json:"country"`

	// PhotoURL is the main photo URL, filled by list queries.
	PhotoURL string  `json:"photoUrl"`
	Photos   []Photo `json:"photos,omitempty"`
}

// MainPhoto returns the user's main photo from Photos, or nil.
func (u *User) MainPhoto() *Photo {
	for i := range u.Photos {
		if u.Photos[i].IsMain {
			return &u.Photos[i]
		}
	}
	return nil
}

// Age returns the completed years between dob and now.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// Like is a directed edge: Liker expressed interest in Likee.
type Like struct {
	LikerID   uuid.UUID `json:"likerId"`
	LikeeID   uuid.UUID `json:"likeeId"`
	CreatedAt time.Time `json:"created"`
}
