package extract_test

import (
	"encoding/json"
	"testing"

	"github.com/fridex/pkgextract/internal/extract"
	"github.com/sclevine/spec"

	. "github.com/onsi/gomega"
)

func testSBOM(t *testing.T, context spec.G, it spec.S) {
	var (
		Expect = NewWithT(t).Expect

		bom extract.SBOM
	)

	it.Before(func() {
		bom = extract.NewSBOM(extract.Inventory{
			Root:   "/some/root",
			Distro: extract.Distro{Name: "some-distro-name", Version: "some-distro-version"},
			Records: []extract.PackageRecord{
				{
					Ecosystem:  extract.EcosystemRPM,
					Name:       "b-package",
					Version:    "2.3.1-1.el9",
					Arch:       "x86_64",
					SourcePath: "/var/lib/rpm/rpmdb.sqlite",
					ParserID:   "rpmdb",
					Source:     extract.SourceDatabase,
				},
				{
					Ecosystem:  extract.EcosystemDeb,
					Name:       "c-package",
					Version:    "3.1.2",
					Arch:       "arm64",
					SourcePath: "/var/lib/dpkg/status",
					ParserID:   "dpkg-status",
					Source:     extract.SourceDatabase,
				},
				{
					Ecosystem:  extract.EcosystemPython,
					Name:       "a-package",
					Version:    "1.2.3",
					SourcePath: "/site-packages/a_package-1.2.3.dist-info/METADATA",
					ParserID:   "python-metadata",
					Source:     extract.SourceMetadata,
					Conflict:   true,
				},
				{
					Ecosystem:  extract.EcosystemPython,
					Name:       "a-package",
					Version:    "1.0.0",
					SourcePath: "/app/poetry.lock",
					ParserID:   "poetry-lock",
					Source:     extract.SourceLockfile,
					Conflict:   true,
					Superseded: true,
				},
				{
					Ecosystem:  extract.EcosystemNode,
					Name:       "d-package",
					Version:    "4.0.0",
					SourcePath: "/app/node_modules/d-package/package.json",
					ParserID:   "node-package",
					Source:     extract.SourceMetadata,
				},
			},
		})
	})

	context("Packages", func() {
		it("lists every package except superseded records", func() {
			Expect(bom.Packages()).To(Equal([]string{
				"a-package",
				"b-package",
				"c-package",
				"d-package",
			}))
		})
	})

	context("SyftFormat", func() {
		it("returns a syft JSON document", func() {
			output, err := bom.SyftFormat()
			Expect(err).NotTo(HaveOccurred())

			var document struct {
				Artifacts []struct {
					Name    string `json:"name"`
					Version string `json:"version"`
					Type    string `json:"type"`
				} `json:"artifacts"`
				Distro struct {
					ID        string `json:"id"`
					VersionID string `json:"versionID"`
				} `json:"distro"`
			}
			Expect(json.Unmarshal([]byte(output), &document)).To(Succeed())

			Expect(document.Distro.ID).To(Equal("some-distro-name"))
			Expect(document.Distro.VersionID).To(Equal("some-distro-version"))

			var artifacts []string
			for _, artifact := range document.Artifacts {
				artifacts = append(artifacts, artifact.Type+":"+artifact.Name+"@"+artifact.Version)
			}
			Expect(artifacts).To(ConsistOf(
				"python:a-package@1.2.3",
				"rpm:b-package@2.3.1-1.el9",
				"deb:c-package@3.1.2",
				"npm:d-package@4.0.0",
			))
		})
	})

	context("CycloneDXFormat", func() {
		it("returns a CycloneDX JSON document", func() {
			output, err := bom.CycloneDXFormat()
			Expect(err).NotTo(HaveOccurred())

			var document struct {
				BOMFormat   string `json:"bomFormat"`
				SpecVersion string `json:"specVersion"`
				Components  []struct {
					Name    string `json:"name"`
					Version string `json:"version"`
				} `json:"components"`
			}
			Expect(json.Unmarshal([]byte(output), &document)).To(Succeed())
			Expect(document.BOMFormat).To(Equal("CycloneDX"))
			Expect(document.SpecVersion).To(Equal("1.3"))

			var components []string
			for _, component := range document.Components {
				components = append(components, component.Name+"@"+component.Version)
			}
			Expect(components).To(ContainElements("a-package@1.2.3", "b-package@2.3.1-1.el9", "c-package@3.1.2", "d-package@4.0.0"))
			Expect(components).NotTo(ContainElement("a-package@1.0.0"))
		})
	})
}
