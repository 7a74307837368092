package models

import (
	"io"
	"time"

	"github.com/google/uuid"
)

type Photo struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	URL         string    `json:"url"`
	PublicID    *string   `json:"-"`
	Description string    `json:"description"`
	DateAdded   time.Time `json:"dateAdded"`
	IsMain      bool      `json:"isMain"`
}

// Asset is an image held by the remote store. PublicID is the identifier
// needed to purge it later.
type Asset struct {
	URL      string
	PublicID string
}

// PhotoUpload carries an incoming image to the photo service.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Description string
}
