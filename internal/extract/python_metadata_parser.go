package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

const PythonMetadataParserID = "python-metadata"

// PythonMetadataParser reads the core metadata written for installed Python
// distributions: PKG-INFO inside (or as) an .egg-info, and METADATA inside a
// .dist-info directory. Only the header block is read.
type PythonMetadataParser struct{}

func (p PythonMetadataParser) ID() string { return PythonMetadataParserID }

func (p PythonMetadataParser) Parse(ctx context.Context, candidate Candidate) ([]PackageRecord, error) {
	file, err := os.Open(candidate.Path)
	if err != nil {
		return nil, NewParseError(candidate, err)
	}
	defer func() {
		if err2 := file.Close(); err2 != nil && err == nil {
			err = err2
		}
	}()

	headers, err := newStanzaReader(file).Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewParseError(candidate, errors.New("metadata is empty"))
		}

		return nil, NewParseError(candidate, err)
	}

	name, _ := headers.getFold("Name")
	if name == "" {
		return nil, NewParseError(candidate, fmt.Errorf("metadata has no Name field"))
	}

	// a missing Version still identifies an installed package
	version, _ := headers.getFold("Version")

	return []PackageRecord{candidate.Record(name, version)}, err // err should be nil here, but return err to catch deferred error
}
