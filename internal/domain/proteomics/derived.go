package proteomics

// CoverageResult is the covered-residue count of one protein.
type CoverageResult struct {
	ProteinID       string  `json:"protein_id"`
	TotalLength     int     `json:"total_length"`
	CoveredLength   int     `json:"covered_length"`
	CoveragePercent float64 `json:"coverage_percent"`
}

// ModificationAnnotation is one entry of the sequence viewer track. Position
// and RelativePosition are nil for "Covered" entries.
type ModificationAnnotation struct {
	Position         *int    `json:"position"`
	Type             string  `json:"type"`
	RelativePosition *int    `json:"relativePosition"`
	PeptideStart     int     `json:"peptideStart"`
	PeptideEnd       int     `json:"peptideEnd"`
	PeptideSequence  string  `json:"peptideSequence"`
	Color            *string `json:"color"`
}

// ModificationPoint is a laid-out marker on the modification track.
type ModificationPoint struct {
	Position int      `json:"position"`
	Type     string   `json:"type"`
	Color    string   `json:"color"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	OffsetX  float64  `json:"offsetX"`
	OffsetY  float64  `json:"offsetY"`
	With     []string `json:"with,omitempty"`
}

type ModificationLegendEntry struct {
	Type    string `json:"type"`
	Color   string `json:"color"`
	Count   int    `json:"count"`
	Visible bool   `json:"visible"`
}

// ProteinSummary is the denormalized listing row, stored whole in the cache.
type ProteinSummary struct {
	HvoID           string   `json:"hvoId"`
	UniProtID       string   `json:"uniProtId"`
	Description     string   `json:"description"`
	PSMCount        int      `json:"psmCount"`
	CoveragePercent float64  `json:"coveragePercent"`
	Datasets        []string `json:"datasets"`
	Modifications   []string `json:"modifications"`
}

type DatasetPSMCount struct {
	Dataset  string `json:"dataset"`
	PSMCount int    `json:"psmCount"`
}
