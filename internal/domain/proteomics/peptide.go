package proteomics

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Peptide is one identified peptide of a protein. StartIndex/EndIndex are
// 1-based inclusive residue positions; Modification uses the
// "Type:relPos;Type:relPos" syntax with relPos relative to StartIndex.
type Peptide struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProteinID    string    `gorm:"column:protein_id;not null;index" json:"protein_id"`
	DatasetID    *string   `gorm:"column:dataset_id;index" json:"dataset_id,omitempty"`
	Sequence     string    `gorm:"column:sequence;index" json:"sequence"`
	StartIndex   int       `gorm:"column:start_index" json:"startIndex"`
	EndIndex     int       `gorm:"column:end_index" json:"endIndex"`
	QValue       float64   `gorm:"column:q_value;index" json:"qValue"`
	Modification string    `gorm:"column:modification" json:"modification,omitempty"`
}

func (Peptide) TableName() string { return "peptides" }

func (p *Peptide) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
