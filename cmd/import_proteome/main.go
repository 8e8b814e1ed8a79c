package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/arcpp/proteome-backend/internal/app"
	"github.com/arcpp/proteome-backend/internal/ingest"
	"github.com/arcpp/proteome-backend/internal/services"
)

type fileList []string

func (l *fileList) String() string { return strings.Join(*l, ",") }
func (l *fileList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var fasta string
	var mzids fileList
	var dataset string
	flag.StringVar(&fasta, "fasta", "", "protein FASTA file (.gz ok, - for stdin)")
	flag.Var(&mzids, "mzid", "mzIdentML file (repeatable, .gz ok)")
	flag.StringVar(&dataset, "dataset", "", "dataset accession for the mzid files (default: parsed from each file name)")
	flag.Parse()

	if fasta == "" && len(mzids) == 0 {
		fmt.Println("nothing to import: pass -fasta and/or -mzid")
		flag.Usage()
		os.Exit(2)
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	im := application.Services.Importer

	if fasta != "" {
		records, err := readFasta(fasta)
		if err != nil {
			fmt.Printf("read %s: %v\n", fasta, err)
			os.Exit(1)
		}
		st, err := im.ImportFasta(ctx, records)
		if err != nil {
			fmt.Printf("import %s: %v\n", fasta, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d proteins\n", fasta, st.Proteins)
	}

	for _, path := range mzids {
		ds := dataset
		if ds == "" {
			ids := services.NormalizeDatasetIDs(strings.FieldsFunc(filepath.Base(path), notAlnum))
			if len(ids) == 0 {
				fmt.Printf("%s: no dataset accession in file name; pass -dataset\n", path)
				os.Exit(1)
			}
			ds = ids[0]
		}
		psms, err := readMzid(path)
		if err != nil {
			fmt.Printf("read %s: %v\n", path, err)
			os.Exit(1)
		}
		st, err := im.ImportPSMs(ctx, ds, psms)
		if err != nil {
			fmt.Printf("import %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("%s (%s): %d peptides, %d proteins, %d unknown accessions\n",
			path, ds, st.Peptides, st.Memberships, st.UnknownProteins)
	}
}

func notAlnum(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }

func readFasta(path string) ([]ingest.FastaRecord, error) {
	rc, err := ingest.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ingest.ReadFasta(rc)
}

func readMzid(path string) ([]ingest.PSM, error) {
	rc, err := ingest.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ingest.ReadMzIdentML(rc)
}
