package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	cvPSMQValue     = "MS:1002354" // PSM-level q-value
	cvPSMFDRQValue  = "MS:1001868" // distinct peptide-level q-value, used when the PSM q-value is absent
	defaultQValue   = 1.0
	unimodNamespace = "UNIMOD:"
)

// PSM is one peptide-spectrum match mapped onto a protein. Modification
// uses the "Name:relPos;..." syntax with relPos 1-based within the peptide.
type PSM struct {
	ProteinAccession string
	Sequence         string
	Start            int
	End              int
	QValue           float64
	Modification     string
}

type mzidDoc struct {
	XMLName      xml.Name          `xml:"MzIdentML"`
	DBSequences  []mzidDBSequence  `xml:"SequenceCollection>DBSequence"`
	Peptides     []mzidPeptide     `xml:"SequenceCollection>Peptide"`
	Evidence     []mzidEvidence    `xml:"SequenceCollection>PeptideEvidence"`
	ResultGroups []mzidResultGroup `xml:"DataCollection>AnalysisData>SpectrumIdentificationList>SpectrumIdentificationResult"`
}

type mzidDBSequence struct {
	ID        string `xml:"id,attr"`
	Accession string `xml:"accession,attr"`
}

type mzidPeptide struct {
	ID            string             `xml:"id,attr"`
	Sequence      string             `xml:"PeptideSequence"`
	Modifications []mzidModification `xml:"Modification"`
}

type mzidModification struct {
	Location int           `xml:"location,attr"`
	CvParams []mzidCvParam `xml:"cvParam"`
}

type mzidEvidence struct {
	ID         string `xml:"id,attr"`
	PeptideRef string `xml:"peptide_ref,attr"`
	DBSeqRef   string `xml:"dBSequence_ref,attr"`
	Start      int    `xml:"start,attr"`
	End        int    `xml:"end,attr"`
	IsDecoy    bool   `xml:"isDecoy,attr"`
}

type mzidResultGroup struct {
	Items []mzidItem `xml:"SpectrumIdentificationItem"`
}

type mzidItem struct {
	PeptideRef  string            `xml:"peptide_ref,attr"`
	EvidenceRef []mzidEvidenceRef `xml:"PeptideEvidenceRef"`
	CvParams    []mzidCvParam     `xml:"cvParam"`
}

type mzidEvidenceRef struct {
	Ref string `xml:"peptideEvidence_ref,attr"`
}

type mzidCvParam struct {
	Accession string `xml:"accession,attr"`
	Name      string `xml:"name,attr"`
	Value     string `xml:"value,attr"`
}

// ReadMzIdentML extracts one PSM per (identification item, non-decoy
// peptide evidence). Evidence without coordinates is skipped. Items without
// a q-value term get q = 1 so that they never count towards coverage.
func ReadMzIdentML(r io.Reader) ([]PSM, error) {
	var doc mzidDoc
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel
	if err := d.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode mzIdentML: %w", err)
	}

	accessions := make(map[string]string, len(doc.DBSequences))
	for _, s := range doc.DBSequences {
		accessions[s.ID] = s.Accession
	}
	peptides := make(map[string]mzidPeptide, len(doc.Peptides))
	for _, p := range doc.Peptides {
		peptides[p.ID] = p
	}
	evidence := make(map[string]mzidEvidence, len(doc.Evidence))
	for _, e := range doc.Evidence {
		evidence[e.ID] = e
	}

	var out []PSM
	for _, group := range doc.ResultGroups {
		for _, item := range group.Items {
			pep, ok := peptides[item.PeptideRef]
			if !ok {
				continue
			}
			q := qValue(item.CvParams)
			mods := modificationString(pep)
			for _, ref := range item.EvidenceRef {
				ev, ok := evidence[ref.Ref]
				if !ok || ev.IsDecoy || ev.Start <= 0 || ev.End < ev.Start {
					continue
				}
				acc := strings.TrimSpace(accessions[ev.DBSeqRef])
				if acc == "" {
					continue
				}
				out = append(out, PSM{
					ProteinAccession: acc,
					Sequence:         strings.ToUpper(pep.Sequence),
					Start:            ev.Start,
					End:              ev.End,
					QValue:           q,
					Modification:     mods,
				})
			}
		}
	}
	return out, nil
}

func qValue(params []mzidCvParam) float64 {
	fallback, haveFallback := 0.0, false
	for _, cv := range params {
		v, err := strconv.ParseFloat(strings.TrimSpace(cv.Value), 64)
		if err != nil {
			continue
		}
		switch cv.Accession {
		case cvPSMQValue:
			return v
		case cvPSMFDRQValue:
			if !haveFallback {
				fallback, haveFallback = v, true
			}
		}
	}
	if haveFallback {
		return fallback
	}
	return defaultQValue
}

// modificationString renders a peptide's modifications in position order.
// Location 0 (N-terminus) maps to residue 1 and locations past the
// C-terminus map to the last residue.
func modificationString(p mzidPeptide) string {
	type site struct {
		pos  int
		name string
	}
	n := len(p.Sequence)
	var sites []site
	for _, m := range p.Modifications {
		name := modificationName(m.CvParams)
		if name == "" {
			continue
		}
		pos := m.Location
		if pos < 1 {
			pos = 1
		}
		if n > 0 && pos > n {
			pos = n
		}
		sites = append(sites, site{pos: pos, name: name})
	}
	sort.SliceStable(sites, func(i, j int) bool { return sites[i].pos < sites[j].pos })
	parts := make([]string, len(sites))
	for i, s := range sites {
		parts[i] = s.name + ":" + strconv.Itoa(s.pos)
	}
	return strings.Join(parts, ";")
}

// modificationName prefers a UNIMOD term and otherwise takes the first
// named term.
func modificationName(params []mzidCvParam) string {
	first := ""
	for _, cv := range params {
		name := strings.TrimSpace(cv.Name)
		if name == "" {
			continue
		}
		if strings.HasPrefix(cv.Accession, unimodNamespace) {
			return name
		}
		if first == "" {
			first = name
		}
	}
	return first
}
