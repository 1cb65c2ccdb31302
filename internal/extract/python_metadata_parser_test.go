package extract_test

import (
	gocontext "context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fridex/pkgextract/internal/extract"
	"github.com/sclevine/spec"

	. "github.com/onsi/gomega"
)

func testPythonMetadataParser(t *testing.T, context spec.G, it spec.S) {
	var (
		Expect = NewWithT(t).Expect

		dir       string
		candidate extract.Candidate
		parser    extract.PythonMetadataParser
	)

	it.Before(func() {
		var err error
		dir, err = os.MkdirTemp("", "python-metadata")
		Expect(err).NotTo(HaveOccurred())

		candidate = extract.Candidate{
			Path:      filepath.Join(dir, "METADATA"),
			RelPath:   "/usr/lib/python3.11/site-packages/requests-2.31.0.dist-info/METADATA",
			Ecosystem: extract.EcosystemPython,
			ParserID:  extract.PythonMetadataParserID,
			Source:    extract.SourceMetadata,
		}
	})

	it.After(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	it("returns the distribution named in the headers", func() {
		err := os.WriteFile(candidate.Path, []byte(`Metadata-Version: 2.1
Name: requests
Version: 2.31.0
Summary: Python HTTP for Humans.
Requires-Dist: charset-normalizer (<4,>=2)

# Requests

Name: not-a-header
`), 0600)
		Expect(err).NotTo(HaveOccurred())

		records, err := parser.Parse(gocontext.Background(), candidate)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(Equal([]extract.PackageRecord{
			{
				Ecosystem:  extract.EcosystemPython,
				Name:       "requests",
				Version:    "2.31.0",
				SourcePath: "/usr/lib/python3.11/site-packages/requests-2.31.0.dist-info/METADATA",
				ParserID:   "python-metadata",
				Source:     extract.SourceMetadata,
			},
		}))
	})

	context("when the headers have no Version", func() {
		it("returns an uncertain record", func() {
			Expect(os.WriteFile(candidate.Path, []byte("Metadata-Version: 1.0\nname: legacy\n"), 0600)).To(Succeed())

			records, err := parser.Parse(gocontext.Background(), candidate)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Name).To(Equal("legacy"))
			Expect(records[0].Version).To(BeEmpty())
			Expect(records[0].Uncertain).To(BeTrue())
		})
	})

	context("failure cases", func() {
		context("when the file is empty", func() {
			it("returns an error", func() {
				Expect(os.WriteFile(candidate.Path, nil, 0600)).To(Succeed())

				_, err := parser.Parse(gocontext.Background(), candidate)
				Expect(err).To(MatchError(ContainSubstring("metadata is empty")))
			})
		})

		context("when the headers have no Name", func() {
			it("returns an error", func() {
				Expect(os.WriteFile(candidate.Path, []byte("Metadata-Version: 2.1\nVersion: 1.0\n"), 0600)).To(Succeed())

				_, err := parser.Parse(gocontext.Background(), candidate)
				Expect(err).To(MatchError(ContainSubstring("metadata has no Name field")))
			})
		})
	})
}
