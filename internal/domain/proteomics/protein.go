package proteomics

// Protein is the authoritative record for one sequence. Dataset membership
// lives in protein_datasets; repos fill DatasetIDs when loading.
type Protein struct {
	ID              string  `gorm:"column:id;primaryKey" json:"protein_id"`
	UniProtID       string  `gorm:"column:uni_prot_id;index" json:"uniProtein_id,omitempty"`
	Description     string  `gorm:"column:description" json:"description,omitempty"`
	Sequence        string  `gorm:"column:sequence" json:"sequence,omitempty"`
	QValue          float64 `gorm:"column:q_value" json:"qValue"`
	Hydrophobicity  float64 `gorm:"column:hydrophobicity" json:"hydrophobicity"`
	PI              float64 `gorm:"column:p_i" json:"pI"`
	MolecularWeight float64 `gorm:"column:molecular_weight" json:"molecular_weight"`
	DatabaseVersion string  `gorm:"column:database_version" json:"Database_V,omitempty"`
	ArCOGlet        string  `gorm:"column:ar_cog_let" json:"arCOGlet,omitempty"`

	DatasetIDs []string `gorm:"-" json:"dataset_ids,omitempty"`
}

func (Protein) TableName() string { return "proteins" }

type Dataset struct {
	ID   string `gorm:"column:id;primaryKey" json:"id"`
	Name string `gorm:"column:name;index" json:"name"`
}

func (Dataset) TableName() string { return "datasets" }

// ProteinDataset records that a protein was observed in a dataset. The
// overlap count of a protein is the number of rows it has here.
type ProteinDataset struct {
	ProteinID string `gorm:"column:protein_id;primaryKey" json:"protein_id"`
	DatasetID string `gorm:"column:dataset_id;primaryKey;index" json:"dataset_id"`
}

func (ProteinDataset) TableName() string { return "protein_datasets" }
