package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const DpkgStatusParserID = "dpkg-status"

// DpkgStatusParser reads the dpkg status database, either the single
// /var/lib/dpkg/status file or one of the per-package files distroless
// images keep under status.d.
type DpkgStatusParser struct{}

func (p DpkgStatusParser) ID() string { return DpkgStatusParserID }

func (p DpkgStatusParser) Parse(ctx context.Context, candidate Candidate) ([]PackageRecord, error) {
	file, err := os.Open(candidate.Path)
	if err != nil {
		return nil, NewParseError(candidate, err)
	}
	defer func() {
		if err2 := file.Close(); err2 != nil && err == nil {
			err = err2
		}
	}()

	var records []PackageRecord
	reader := newStanzaReader(file)
	for index := 1; ; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, NewParseError(candidate, err)
		}

		name, ok := entry.get("Package")
		if !ok {
			return nil, NewParseError(candidate, fmt.Errorf("stanza %d has no Package field", index))
		}

		// status.d files carry no Status field, everything they list is
		// installed
		if status, ok := entry.get("Status"); ok && !strings.HasSuffix(status, " installed") {
			continue
		}

		version, _ := entry.get("Version")
		record := candidate.Record(name, version)
		record.Arch, _ = entry.get("Architecture")
		records = append(records, record)
	}

	return records, err // err should be nil here, but return err to catch deferred error
}
