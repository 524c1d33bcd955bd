// Package catalog holds the disease knowledge base merged into every
// prediction: a description and practical precautions per label.
package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// UnknownName is the fallback entry used when the classifier returns a
// label the catalog does not know.
const UnknownName = "Unknown"

// Precautions is a list of advice strings stored as a JSON text column.
type Precautions []string

// Value implements driver.Valuer.
func (p Precautions) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal precautions: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (p *Precautions) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("unsupported precautions column type %T", value)
	}
}

// Disease is one catalog entry.
type Disease struct {
	ID          uint        `gorm:"primaryKey"`
	Name        string      `gorm:"column:name;uniqueIndex;size:64"`
	Description string      `gorm:"column:description;type:text"`
	Precautions Precautions `gorm:"column:precautions;type:text"`
	CreatedAt   time.Time   `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (Disease) TableName() string {
	return "diseases"
}

// Defaults returns the built-in catalog used to seed the database and as
// the in-memory fallback when the database is unavailable.
func Defaults() []Disease {
	return []Disease{
		{
			Name:        "Eczema",
			Description: "A condition where patches of skin become inflamed, itchy, red, cracked, and rough. Blisters may sometimes occur.",
			Precautions: Precautions{
				"Moisturize your skin frequently.",
				"Avoid harsh soaps and known irritants.",
				"Apply anti-itch cream to affected areas.",
				"Use a humidifier in dry environments.",
			},
		},
		{
			Name:        "Psoriasis",
			Description: "A skin disease that causes red, itchy scaly patches, most commonly on the knees, elbows, trunk, and scalp.",
			Precautions: Precautions{
				"Use topical treatments as prescribed.",
				"Get regular, small doses of sunlight.",
				"Manage stress and avoid skin injury.",
				"Avoid alcohol and smoking.",
			},
		},
		{
			Name:        "Ringworm",
			Description: "A common fungal infection that causes a circular rash shaped like a ring. It is contagious and can be spread through contact.",
			Precautions: Precautions{
				"Keep the affected area clean and dry.",
				"Use over-the-counter antifungal creams.",
				"Avoid sharing personal items like towels or clothing.",
				"Wash clothes and bedding regularly.",
			},
		},
		{
			Name:        "Benign Mole",
			Description: "A common, typically harmless skin growth. While this appears benign, any new or changing mole should be professionally evaluated.",
			Precautions: Precautions{
				"Monitor for changes (Asymmetry, Border, Color, Diameter, Evolving).",
				"Use sunscreen to protect your skin.",
				"Schedule regular skin checks with a dermatologist.",
				"Avoid excessive sun exposure.",
			},
		},
		{
			Name:        "Acne Vulgaris",
			Description: "A common skin condition that occurs when hair follicles become clogged with oil and dead skin cells, causing pimples, blackheads, or whiteheads.",
			Precautions: Precautions{
				"Keep your face clean.",
				"Use non-comedogenic makeup and skincare products.",
				"Avoid touching your face frequently.",
				"Don't squeeze or pop pimples.",
			},
		},
		{
			Name:        "Impetigo",
			Description: "A highly contagious bacterial skin infection that causes red sores, mainly on the face, especially around the nose and mouth.",
			Precautions: Precautions{
				"Keep the affected area clean and covered.",
				"Avoid scratching the sores.",
				"Use prescribed antibiotic ointments.",
				"Wash hands frequently to prevent spread.",
			},
		},
		{
			Name:        "Unknown",
			Description: "The condition could not be confidently identified. This may be a rare condition or the image quality may be insufficient.",
			Precautions: Precautions{
				"Consult a healthcare professional for accurate diagnosis.",
				"Monitor for any changes in the condition.",
				"Avoid self-treatment without proper diagnosis.",
			},
		},
	}
}

// Fallback returns the built-in entry for name, or the Unknown entry when
// no built-in matches.
func Fallback(name string) Disease {
	var unknown Disease
	for _, disease := range Defaults() {
		if disease.Name == name {
			return disease
		}
		if disease.Name == UnknownName {
			unknown = disease
		}
	}
	return unknown
}
