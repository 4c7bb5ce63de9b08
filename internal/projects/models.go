package projects

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"carbonlink/carbonlink-backend/internal/carbon"
)

// Project is the current-state registry record for a carbon project.
// Assessment history is not persisted; the record holds only the latest
// issuance snapshot.
type Project struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string         `gorm:"not null" json:"name"`
	Description     string         `json:"description"`
	OwnerAddress    string         `gorm:"not null" json:"owner_address"`
	ContractAddress string         `json:"contract_address"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`

	Geometry datatypes.JSON `json:"geometry"` // GeoJSON boundary, optional

	AreaHectares     float64                 `json:"area_hectares"`
	DurationYears    float64                 `json:"duration_years"`
	ProjectType      carbon.ProjectType      `gorm:"type:varchar(32)" json:"project_type"`
	BaselineScenario carbon.BaselineScenario `gorm:"type:varchar(32)" json:"baseline_scenario"`

	// Latest issuance snapshot.
	CurrentCarbon   float64    `json:"current_carbon"`
	TradableCredits float64    `json:"tradable_credits"`
	BufferCredits   float64    `json:"buffer_credits"`
	MintEligible    bool       `json:"mint_eligible"`
	LastAssessedAt  *time.Time `json:"last_assessed_at,omitempty"`
}

// Params builds the calculator metadata from the registry record.
func (p *Project) Params() carbon.ProjectParameters {
	return carbon.ProjectParameters{
		AreaHectares:     p.AreaHectares,
		DurationYears:    p.DurationYears,
		ProjectType:      p.ProjectType,
		BaselineScenario: p.BaselineScenario,
	}
}
