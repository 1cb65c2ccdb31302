package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	rpmdb "github.com/anchore/go-rpmdb/pkg"
	backoff "github.com/cenkalti/backoff/v4"

	// database/sql driver for the SQLite flavour of the database
	_ "modernc.org/sqlite"
)

const RPMDBParserID = "rpmdb"

// RPMDBParser reads the Berkeley DB, NDB and SQLite flavours of the RPM
// package database.
type RPMDBParser struct {
	// LockRetry bounds how long a locked SQLite database is retried.
	LockRetry time.Duration
}

// NewRPMDBParser returns an RPMDBParser with default settings.
func NewRPMDBParser() RPMDBParser {
	return RPMDBParser{LockRetry: 2 * time.Second}
}

func (p RPMDBParser) ID() string { return RPMDBParserID }

func (p RPMDBParser) Parse(ctx context.Context, candidate Candidate) ([]PackageRecord, error) {
	db, err := p.open(ctx, candidate.Path)
	if err != nil {
		return nil, NewParseError(candidate, err)
	}
	defer func() {
		_ = db.Close()
	}()

	packages, err := db.ListPackages()
	if err != nil {
		return nil, NewParseError(candidate, fmt.Errorf("failed to list packages: %w", err))
	}

	var records []PackageRecord
	for _, pkg := range packages {
		if pkg == nil || pkg.Name == "" {
			continue
		}

		// gpg-pubkey entries are imported signing keys, not packages
		if pkg.Name == "gpg-pubkey" {
			continue
		}

		record := candidate.Record(pkg.Name, rpmVersion(pkg.Epoch, pkg.Version, pkg.Release))
		record.Arch = pkg.Arch
		records = append(records, record)
	}

	return records, nil
}

func (p RPMDBParser) open(ctx context.Context, path string) (*rpmdb.RpmDB, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxElapsedTime = p.LockRetry

	var db *rpmdb.RpmDB
	err := backoff.Retry(func() error {
		var err error
		db, err = rpmdb.Open(path)
		if err != nil {
			if isDatabaseLocked(err) {
				return err
			}

			return backoff.Permanent(err)
		}

		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to open rpm database: %w", err)
	}

	return db, nil
}

func isDatabaseLocked(err error) bool {
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "database is locked") || strings.Contains(message, "sqlite_busy")
}

// rpmVersion renders an epoch, version and release triple the way rpm -q
// does, prefixing the epoch only when one is set.
func rpmVersion(epoch *int, version, release string) string {
	if version == "" {
		return ""
	}

	evr := version
	if release != "" {
		evr = fmt.Sprintf("%s-%s", version, release)
	}

	if epoch != nil && *epoch != 0 {
		evr = fmt.Sprintf("%d:%s", *epoch, evr)
	}

	return evr
}
