package listings

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/coolmotors/coolmotors-backend/pkg/enums"
)

// Attributes is the seller-supplied listing content shared by drafts,
// published vehicles, and sold records. Transitions between collections copy
// these fields verbatim while the surrounding identity is minted fresh.
type Attributes struct {
	Make               string             `bson:"make" json:"make"`
	Model              string             `bson:"model" json:"model"`
	Variant            string             `bson:"variant,omitempty" json:"variant,omitempty"`
	Year               int                `bson:"year" json:"year"`
	Price              int64              `bson:"price" json:"price"`
	FuelType           enums.FuelType     `bson:"fuelType" json:"fuelType"`
	Transmission       enums.Transmission `bson:"transmission" json:"transmission"`
	EngineDisplacement *float64           `bson:"engineDisplacement,omitempty" json:"engineDisplacement,omitempty"`
	EngineType         *enums.EngineKind  `bson:"engineType,omitempty" json:"engineType,omitempty"`
	Odometer           int64              `bson:"odometer" json:"odometer"`
	Ownership          int                `bson:"ownership" json:"ownership"`
	State              enums.Region       `bson:"state" json:"state"`
	Location           string             `bson:"location" json:"location"`
	Description        string             `bson:"description" json:"description"`
	Images             []string           `bson:"images" json:"images"`
	ListedBy           primitive.ObjectID `bson:"listedBy" json:"listedBy"`
}

// Normalize applies write-time cleanup to the free-text fields: whitespace
// trimmed and the first letter upper-cased.
func (a *Attributes) Normalize() {
	a.Make = titleFirst(a.Make)
	a.Model = titleFirst(a.Model)
	a.Variant = titleFirst(a.Variant)
	a.Location = titleFirst(a.Location)
	a.Description = titleFirst(a.Description)
}

// CoverImage returns the listing's primary image URL, empty when none exist.
func (a *Attributes) CoverImage() string {
	if len(a.Images) == 0 {
		return ""
	}
	return a.Images[0]
}

// Draft is a submitted listing awaiting moderation.
type Draft struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Attributes `bson:",inline"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Vehicle is a published listing visible to buyers.
type Vehicle struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Attributes    `bson:",inline"`
	NumberOfLikes int       `bson:"numberOfLikes" json:"numberOfLikes"`
	IsFeatured    bool      `bson:"isFeatured" json:"isFeatured"`
	ExpiresAt     time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SoldVehicle is the archival record kept after an owner marks a listing sold.
type SoldVehicle struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Attributes `bson:",inline"`
	SoldAt     time.Time `bson:"soldAt" json:"soldAt"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

func titleFirst(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	first, width := utf8.DecodeRuneInString(value)
	return string(unicode.ToUpper(first)) + value[width:]
}
