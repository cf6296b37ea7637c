// Package models defines the data model for the hifix player
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Quality is the stream quality requested from the proxy.
type Quality string

const (
	QualityHiRes    Quality = "HI_RES_LOSSLESS"
	QualityLossless Quality = "LOSSLESS"
	QualityHigh     Quality = "HIGH"
	QualityLow      Quality = "LOW"
)

// ParseQuality validates a quality name, case-insensitively.
func ParseQuality(s string) (Quality, error) {
	q := Quality(strings.ToUpper(strings.TrimSpace(s)))
	switch q {
	case QualityHiRes, QualityLossless, QualityHigh, QualityLow:
		return q, nil
	default:
		return "", fmt.Errorf("unknown quality %q", s)
	}
}

var qualityOrder = []Quality{QualityHiRes, QualityLossless, QualityHigh, QualityLow}

// Next cycles through the qualities from highest to lowest and wraps; unknown values
// move to [QualityLossless].
func (q Quality) Next() Quality {
	for i, o := range qualityOrder {
		if o == q {
			return qualityOrder[(i+1)%len(qualityOrder)]
		}
	}
	return QualityLossless
}

// RepeatMode controls what happens when the queue runs out or a track ends.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

func (r RepeatMode) String() string {
	switch r {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return ""
	}
}

// Next cycles Off -> All -> One -> Off.
func (r RepeatMode) Next() RepeatMode {
	return (r + 1) % 3
}
