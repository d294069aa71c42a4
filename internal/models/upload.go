package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadState tracks the lifecycle of an uploaded archive.
type UploadState string

const (
	UploadStateCreated    UploadState = "created"
	UploadStateUploaded   UploadState = "uploaded"
	UploadStateProcessing UploadState = "processing"
	UploadStateFinished   UploadState = "finished"
	UploadStateFailed     UploadState = "failed"
)

// States progress strictly forward; finished and failed are terminal.
var stateRank = map[UploadState]int{
	UploadStateCreated:    0,
	UploadStateUploaded:   1,
	UploadStateProcessing: 2,
	UploadStateFinished:   3,
	UploadStateFailed:     3,
}

// Valid reports whether the state is a known lifecycle state.
func (s UploadState) Valid() bool {
	_, ok := stateRank[s]
	return ok
}

// Terminal reports whether no further transitions are permitted.
func (s UploadState) Terminal() bool {
	return s == UploadStateFinished || s == UploadStateFailed
}

// CanTransitionTo reports whether moving from s to next is a legal
// forward transition.
func (s UploadState) CanTransitionTo(next UploadState) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	return stateRank[next] > stateRank[s]
}

// Upload is the job record for one uploaded archive.
type Upload struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OriginalFilename string         `json:"originalFilename" gorm:"not null"`
	State            UploadState    `json:"state" gorm:"size:20;not null;index"`
	ResultSummary    map[string]int `json:"resultSummary,omitempty" gorm:"serializer:json;type:jsonb"`
	CreatedAt        time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (Upload) TableName() string {
	return "uploads"
}
