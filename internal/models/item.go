package models

import (
	"time"

	"github.com/google/uuid"
)

// MorphometricFields are the measurement columns every manifest must carry.
// Each value is a floating-point number.
var MorphometricFields = []string{
	"area",
	"perimeter",
	"major_axis_length",
	"minor_axis_length",
	"eccentricity",
	"solidity",
	"estimated_volume",
}

// AnnotableFields are the taxonomy columns a manifest may carry. Absent
// fields are stored as null together with their modification companions so
// that annotation sessions can fill them in later.
var AnnotableFields = []string{
	"empire",
	"kingdom",
	"phylum",
	"class",
	"genus",
	"species",
}

// Annotation holds one annotable field's value and its modification trail.
// A nil Value means the field has not been annotated yet.
type Annotation struct {
	Value      *string `json:"value"`
	ModifiedBy *string `json:"modified_by"`
	ModifiedAt *string `json:"modification_time"`
}

// Item is one cataloged specimen: a manifest row joined with its image
// asset. The ID is assigned by the database on insert; the item's blob name
// is derived from it afterwards.
type Item struct {
	ID            uuid.UUID             `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID       string                `json:"groupId" gorm:"size:64;not null;index"`
	Filename      string                `json:"filename" gorm:"not null"`
	Extension     string                `json:"extension" gorm:"size:16;not null"`
	Timestamp     time.Time             `json:"timestamp" gorm:"not null"`
	Width         int                   `json:"width" gorm:"not null"`
	Height        int                   `json:"height" gorm:"not null"`
	Morphometrics map[string]float64    `json:"morphometrics" gorm:"serializer:json;type:jsonb"`
	Annotations   map[string]Annotation `json:"annotations" gorm:"serializer:json;type:jsonb"`
	CreatedAt     time.Time             `json:"createdAt" gorm:"autoCreateTime"`
}

func (Item) TableName() string {
	return "items"
}
