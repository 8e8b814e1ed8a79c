package ingest

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// FastaRecord is one protein entry. ID is the first header token.
type FastaRecord struct {
	ID          string
	Description string
	Sequence    string
}

const maxFastaLine = 16 << 20

// ReadFasta parses every record of r. Sequence lines are upper-cased and
// whitespace inside them is dropped. Text before the first header and
// records with an empty id are skipped.
func ReadFasta(r io.Reader) ([]FastaRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxFastaLine)

	var (
		out []FastaRecord
		cur *FastaRecord
		seq strings.Builder
	)
	flush := func() {
		if cur != nil && cur.ID != "" {
			cur.Sequence = seq.String()
			out = append(out, *cur)
		}
		cur = nil
		seq.Reset()
	}
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.HasPrefix(line, ">") {
			flush()
			id, desc := splitHeader(line[1:])
			cur = &FastaRecord{ID: id, Description: desc}
			continue
		}
		if cur == nil {
			continue
		}
		for _, f := range strings.Fields(line) {
			seq.WriteString(strings.ToUpper(f))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read fasta: %w", err)
	}
	flush()
	return out, nil
}

func splitHeader(h string) (id, desc string) {
	h = strings.TrimSpace(h)
	if i := strings.IndexAny(h, " \t"); i >= 0 {
		return h[:i], strings.TrimSpace(h[i+1:])
	}
	return h, ""
}

// Open opens path for reading, transparently decompressing ".gz" files.
// "-" reads standard input.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return fh, nil
	}
	gr, err := gzip.NewReader(fh)
	if err != nil {
		fh.Close()
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{Reader: gr, Closer: fh}, nil
}
