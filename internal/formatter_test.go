package internal_test

import (
	"bytes"
	"testing"

	"github.com/fridex/pkgextract/internal"
	"github.com/fridex/pkgextract/internal/extract"
	"github.com/sclevine/spec"

	. "github.com/onsi/gomega"
	. "github.com/paketo-buildpacks/occam/matchers"
)

func testFormatter(t *testing.T, context spec.G, it spec.S) {
	var (
		Expect = NewWithT(t).Expect

		buffer    *bytes.Buffer
		formatter internal.Formatter
		report    internal.Report
	)

	it.Before(func() {
		buffer = bytes.NewBuffer(nil)
		formatter = internal.NewFormatter(buffer)

		report = internal.Report{
			Image: "docker.io/library/debian:12",
			Inventory: extract.Inventory{
				Root:   "/some/root",
				Distro: extract.Distro{Name: "debian", Version: "12"},
				Records: []extract.PackageRecord{
					{
						Ecosystem:  extract.EcosystemDeb,
						Name:       "bash",
						Version:    "5.2.15-2+b2",
						Arch:       "amd64",
						SourcePath: "/var/lib/dpkg/status",
						ParserID:   "dpkg-status",
						Source:     extract.SourceDatabase,
					},
					{
						Ecosystem:  extract.EcosystemPython,
						Name:       "legacy",
						SourcePath: "/site-packages/legacy.egg-info",
						ParserID:   "python-metadata",
						Source:     extract.SourceMetadata,
						Uncertain:  true,
					},
					{
						Ecosystem:  extract.EcosystemPython,
						Name:       "requests",
						Version:    "2.31.0",
						SourcePath: "/site-packages/requests-2.31.0.dist-info/METADATA",
						ParserID:   "python-metadata",
						Source:     extract.SourceMetadata,
						Conflict:   true,
					},
					{
						Ecosystem:  extract.EcosystemPython,
						Name:       "requests",
						Version:    "2.28.0",
						SourcePath: "/app/poetry.lock",
						ParserID:   "poetry-lock",
						Source:     extract.SourceLockfile,
						Conflict:   true,
						Superseded: true,
					},
				},
				Conflicts: []extract.ConflictWarning{
					{
						Ecosystem: extract.EcosystemPython,
						Name:      "requests",
						Versions:  []string{"2.31.0", "2.28.0"},
						Retained:  "/site-packages/requests-2.31.0.dist-info/METADATA",
					},
				},
				Errors: []extract.ScanError{
					{
						Path:     "/app/package-lock.json",
						Reason:   "unexpected end of JSON input",
						Kind:     extract.ErrorParse,
						ParserID: "package-lock",
					},
					{
						Path:   "/opt/secret",
						Reason: "permission denied",
						Kind:   extract.ErrorAccess,
					},
				},
			},
		}
	})

	context("JSON", func() {
		it("returns the report envelope", func() {
			Expect(formatter.JSON(report)).To(Succeed())
			Expect(buffer.String()).To(MatchJSON(`{
				"root": "/some/root",
				"image": "docker.io/library/debian:12",
				"distro": {"name": "debian", "version": "12"},
				"packages": [
					{
						"ecosystem": "deb",
						"name": "bash",
						"version": "5.2.15-2+b2",
						"source_path": "/var/lib/dpkg/status",
						"parser": "dpkg-status",
						"arch": "amd64"
					},
					{
						"ecosystem": "python",
						"name": "legacy",
						"version": "",
						"source_path": "/site-packages/legacy.egg-info",
						"parser": "python-metadata",
						"uncertain": true
					},
					{
						"ecosystem": "python",
						"name": "requests",
						"version": "2.31.0",
						"source_path": "/site-packages/requests-2.31.0.dist-info/METADATA",
						"parser": "python-metadata",
						"conflict": true
					},
					{
						"ecosystem": "python",
						"name": "requests",
						"version": "2.28.0",
						"source_path": "/app/poetry.lock",
						"parser": "poetry-lock",
						"conflict": true,
						"superseded": true
					}
				],
				"conflicts": [
					{
						"ecosystem": "python",
						"name": "requests",
						"versions": ["2.31.0", "2.28.0"],
						"retained": "/site-packages/requests-2.31.0.dist-info/METADATA"
					}
				],
				"errors": [
					{
						"path": "/app/package-lock.json",
						"reason": "unexpected end of JSON input",
						"kind": "parse",
						"parser": "package-lock"
					},
					{
						"path": "/opt/secret",
						"reason": "permission denied",
						"kind": "access"
					}
				],
				"cancelled": false
			}`))
		})

		it("keeps the package fields in a fixed order", func() {
			Expect(formatter.JSON(report)).To(Succeed())
			Expect(buffer.String()).To(ContainSubstring(`{
      "ecosystem": "deb",
      "name": "bash",
      "version": "5.2.15-2+b2",
      "source_path": "/var/lib/dpkg/status",`))
		})

		it("produces identical bytes for identical reports", func() {
			Expect(formatter.JSON(report)).To(Succeed())

			other := bytes.NewBuffer(nil)
			Expect(internal.NewFormatter(other).JSON(report)).To(Succeed())
			Expect(other.Bytes()).To(Equal(buffer.Bytes()))
		})

		context("when the inventory is empty", func() {
			it("renders empty arrays rather than null", func() {
				Expect(formatter.JSON(internal.Report{Inventory: extract.Inventory{Root: "/some/root", Cancelled: true}})).To(Succeed())
				Expect(buffer.String()).To(MatchJSON(`{
					"root": "/some/root",
					"distro": {"name": "", "version": ""},
					"packages": [],
					"conflicts": [],
					"errors": [],
					"cancelled": true
				}`))
			})
		})
	})

	context("Markdown", func() {
		it("renders a table per ecosystem", func() {
			formatter.Markdown(report)
			Expect(buffer).To(ContainLines(
				"# Package Inventory",
				"",
				"**Root:** `/some/root`",
				"",
				"**Image:** `docker.io/library/debian:12`",
				"",
				"**Distro:** debian 12",
				"",
				"## deb",
				"",
				"| Name | Version | Arch | Source | Notes |",
				"|---|---|---|---|---|",
				"| bash | 5.2.15-2+b2 | amd64 | /var/lib/dpkg/status |  |",
				"",
				"## python",
				"",
				"| Name | Version | Arch | Source | Notes |",
				"|---|---|---|---|---|",
				"| legacy |  |  | /site-packages/legacy.egg-info | uncertain |",
				"| requests | 2.31.0 |  | /site-packages/requests-2.31.0.dist-info/METADATA | conflict |",
				"| requests | 2.28.0 |  | /app/poetry.lock | conflict, superseded |",
				"",
				"## Conflicts",
				"",
				"| Ecosystem | Name | Versions | Retained |",
				"|---|---|---|---|",
				"| python | requests | 2.31.0, 2.28.0 | /site-packages/requests-2.31.0.dist-info/METADATA |",
				"",
				"## Errors",
				"",
				"| Path | Kind | Parser | Reason |",
				"|---|---|---|---|",
				"| /app/package-lock.json | parse | package-lock | unexpected end of JSON input |",
				"| /opt/secret | access |  | permission denied |",
			))
		})
	})

	context("Format", func() {
		it("dispatches to the named format", func() {
			Expect(formatter.Format("json", report)).To(Succeed())
			Expect(buffer.String()).To(ContainSubstring(`"root": "/some/root"`))

			buffer.Reset()
			Expect(formatter.Format("markdown", report)).To(Succeed())
			Expect(buffer.String()).To(HavePrefix("# Package Inventory"))

			buffer.Reset()
			Expect(formatter.Format("syft", report)).To(Succeed())
			Expect(buffer.String()).To(ContainSubstring(`"artifacts"`))
			Expect(buffer.String()).NotTo(ContainSubstring(`"version": "2.28.0"`))

			buffer.Reset()
			Expect(formatter.Format("cyclonedx", report)).To(Succeed())
			Expect(buffer.String()).To(ContainSubstring(`"bomFormat": "CycloneDX"`))
		})

		context("failure cases", func() {
			context("when the format is unknown", func() {
				it("returns an error", func() {
					err := formatter.Format("spdx", report)
					Expect(err).To(MatchError(`unsupported format "spdx", expected one of json, markdown, syft, cyclonedx`))
				})
			})
		})
	})
}
