package models

import (
	"strings"
	"time"
)

// Breed enumerates the dairy breeds tracked by the farms.
type Breed string

const (
	BreedHolstein   Breed = "Holstein"
	BreedJersey     Breed = "Jersey"
	BreedGuernsey   Breed = "Guernsey"
	BreedBrownSwiss Breed = "Brown Swiss"
)

var breedCodes = map[Breed]int{
	BreedHolstein:   1,
	BreedJersey:     2,
	BreedGuernsey:   3,
	BreedBrownSwiss: 4,
}

// Code returns the ordinal encoding of the breed. Unknown breeds encode to 0.
func (b Breed) Code() int {
	for breed, code := range breedCodes {
		if strings.EqualFold(string(breed), strings.TrimSpace(string(b))) {
			return code
		}
	}
	return 0
}

// HealthStatus describes the current health of an animal.
type HealthStatus string

const (
	HealthHealthy    HealthStatus = "healthy"
	HealthRecovering HealthStatus = "recovering"
	HealthSick       HealthStatus = "sick"
)

// Code returns the ordinal encoding used as model input.
func (h HealthStatus) Code() float64 {
	switch HealthStatus(strings.ToLower(strings.TrimSpace(string(h)))) {
	case HealthHealthy:
		return 1
	case HealthSick:
		return 0
	default:
		// recovering and anything unrecognised sit in the middle
		return 0.5
	}
}

// Animal is a registered dairy animal owned by a farm.
type Animal struct {
	ID           string       `bson:"_id" json:"id"`
	FarmID       string       `bson:"farm_id" json:"farm_id"`
	TagNumber    string       `bson:"tag_number" json:"tag_number"`
	Breed        Breed        `bson:"breed" json:"breed"`
	BirthDate    time.Time    `bson:"birth_date" json:"birth_date"`
	Weight       *float64     `bson:"weight,omitempty" json:"weight,omitempty"`
	HealthStatus HealthStatus `bson:"health_status" json:"health_status"`
	IsActive     bool         `bson:"is_active" json:"is_active"`
}

// MilkRecord captures one day of milking for an animal.
type MilkRecord struct {
	AnimalID       string    `bson:"animal_id" json:"animal_id"`
	Date           time.Time `bson:"date" json:"date"`
	MorningYield   float64   `bson:"morning_yield" json:"morning_yield"`
	EveningYield   float64   `bson:"evening_yield" json:"evening_yield"`
	FatContent     *float64  `bson:"fat_content,omitempty" json:"fat_content,omitempty"`
	ProteinContent *float64  `bson:"protein_content,omitempty" json:"protein_content,omitempty"`
}

// TotalYield is always derived from the two milkings.
func (r MilkRecord) TotalYield() float64 {
	return r.MorningYield + r.EveningYield
}
