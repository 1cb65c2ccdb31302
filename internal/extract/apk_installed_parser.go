package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

const APKInstalledParserID = "apk-installed"

// APKInstalledParser reads the Alpine package database, a list of
// single-letter "K:value" records separated by blank lines.
type APKInstalledParser struct{}

func (p APKInstalledParser) ID() string { return APKInstalledParserID }

func (p APKInstalledParser) Parse(ctx context.Context, candidate Candidate) ([]PackageRecord, error) {
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

		name, ok := entry.get("P")
		if !ok || name == "" {
			return nil, NewParseError(candidate, fmt.Errorf("record %d has no P: field", index))
		}

		version, _ := entry.get("V")
		record := candidate.Record(name, version)
		record.Arch, _ = entry.get("A")
		records = append(records, record)
	}

	return records, err // err should be nil here, but return err to catch deferred error
}
