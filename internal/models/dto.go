package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type UserForRegister struct {
	Username    string    `json:"username" binding:"required,min=3,max=50"`
	Password    string    `json:"password" binding:"required,min=4,max=64"`
	Gender      string    `json:"gender" binding:"required,max=20"`
	KnownAs     string    `json:"knownAs" binding:"required,max=100"`
	DateOfBirth time.Time `json:"dateOfBirth" binding:"required"`
	City        string    `json:"city" binding:"required,max=100"`
	Country     string    `json:"country" binding:"required,max=100"`
}

type UserForLogin struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UserForUpdate struct {
	Introduction string `json:"introduction" binding:"max=2000"`
	LookingFor   string `json:"lookingFor" binding:"max=2000"`
	Interests    string `json:"interests" binding:"max=2000"`
	City         string `json:"city" binding:"max=100"`
	Country      string `json:"country" binding:"max=100"`
}

type UserForList struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Gender     string    `json:"gender"`
	Age        int       `json:"age"`
	KnownAs    string    `json:"knownAs"`
	Created    time.Time `json:"created"`
	LastActive time.Time `json:"lastActive"`
	City       string    `json:"city"`
	Country    string    `json:"country"`
	PhotoURL   string    `json:"photoUrl"`
}

type UserForDetailed struct {
	UserForList
	Introduction string             `json:"introduction"`
	LookingFor   string             `json:"lookingFor"`
	Interests    string             `json:"interests"`
	Photos       []PhotoForDetailed `json:"photos"`
}

type PhotoForDetailed struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	DateAdded   time.Time `json:"dateAdded"`
	IsMain      bool      `json:"isMain"`
}

type PhotoForReturn struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	DateAdded   time.Time `json:"dateAdded"`
	IsMain      bool      `json:"isMain"`
	PublicID    string    `json:"publicId"`
}

type LoginResponse struct {
	Token string      `json:"token"`
	User  UserForList `json:"user"`
}

// NormalizeUsername is the canonical, case-insensitive form of a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NewUserFromRegister builds an unsaved user from a registration request.
// Credentials and timestamps are set by the caller.
func NewUserFromRegister(req *UserForRegister) *User {
	dob := req.DateOfBirth.UTC()
	return &User{
		ID:          uuid.New(),
		Username:    NormalizeUsername(req.Username),
		Gender:      strings.ToLower(strings.TrimSpace(req.Gender)),
		DateOfBirth: time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC),
		KnownAs:     req.KnownAs,
		City:        req.City,
		Country:     req.Country,
	}
}

// ApplyUserUpdate copies the editable profile fields onto u.
func ApplyUserUpdate(u *User, req *UserForUpdate) {
	u.Introduction = req.Introduction
	u.LookingFor = req.LookingFor
	u.Interests = req.Interests
	u.City = req.City
	u.Country = req.Country
}

func ToUserForList(u User, now time.Time) UserForList {
	photoURL := u.PhotoURL
	if photoURL == "" {
		if main := u.MainPhoto(); main != nil {
			photoURL = main.URL
		}
	}
	return UserForList{
		ID:         u.ID,
		Username:   u.Username,
		Gender:     u.Gender,
		Age:        Age(u.DateOfBirth, now),
		KnownAs:    u.KnownAs,
		Created:    u.CreatedAt,
		LastActive: u.LastActive,
		City:       u.City,
		Country:    u.Country,
		PhotoURL:   photoURL,
	}
}

func ToUserForDetailed(u User, now time.Time) UserForDetailed {
	photos := make([]PhotoForDetailed, len(u.Photos))
	for i, p := range u.Photos {
		photos[i] = ToPhotoForDetailed(p)
	}
	return UserForDetailed{
		UserForList:  ToUserForList(u, now),
		Introduction: u.Introduction,
		LookingFor:   u.LookingFor,
		Interests:    u.Interests,
		Photos:       photos,
	}
}

func ToPhotoForDetailed(p Photo) PhotoForDetailed {
	return PhotoForDetailed{
		ID:          p.ID,
		URL:         p.URL,
		Description: p.Description,
		DateAdded:   p.DateAdded,
		IsMain:      p.IsMain,
	}
}

func ToPhotoForReturn(p Photo) PhotoForReturn {
	var publicID string
	if p.PublicID != nil {
		publicID = *p.PublicID
	}
	return PhotoForReturn{
		ID:          p.ID,
		URL:         p.URL,
		Description: p.Description,
		DateAdded:   p.DateAdded,
		IsMain:      p.IsMain,
		PublicID:    publicID,
	}
}
