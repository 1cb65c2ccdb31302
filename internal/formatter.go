package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fridex/pkgextract/internal/extract"
)

// Output formats understood by Formatter.Format.
const (
	FormatJSON      = "json"
	FormatMarkdown  = "markdown"
	FormatSyft      = "syft"
	FormatCycloneDX = "cyclonedx"
)

// Formats lists the supported output formats.
var Formats = []string{FormatJSON, FormatMarkdown, FormatSyft, FormatCycloneDX}

// A Report is an inventory together with the optional name of the image its
// filesystem was taken from.
type Report struct {
	Image     string
	Inventory extract.Inventory
}

type Formatter struct {
	writer io.Writer
}

func NewFormatter(writer io.Writer) Formatter {
	return Formatter{
		writer: writer,
	}
}

// Format writes the report in the named format.
func (f Formatter) Format(format string, report Report) error {
	switch format {
	case FormatJSON:
		return f.JSON(report)
	case FormatMarkdown:
		f.Markdown(report)
		return nil
	case FormatSyft:
		output, err := extract.NewSBOM(report.Inventory).SyftFormat()
		if err != nil {
			return fmt.Errorf("failed to render syft SBOM: %w", err)
		}

		_, err = io.WriteString(f.writer, output)
		return err
	case FormatCycloneDX:
		output, err := extract.NewSBOM(report.Inventory).CycloneDXFormat()
		if err != nil {
			return fmt.Errorf("failed to render CycloneDX SBOM: %w", err)
		}

		_, err = io.WriteString(f.writer, output)
		return err
	default:
		return fmt.Errorf("unsupported format %q, expected one of %s", format, strings.Join(Formats, ", "))
	}
}

type reportDistro struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type reportPackage struct {
	Ecosystem  string `json:"ecosystem"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	SourcePath string `json:"source_path"`
	Parser     string `json:"parser"`
	Arch       string `json:"arch,omitempty"`
	Uncertain  bool   `json:"uncertain,omitempty"`
	Conflict   bool   `json:"conflict,omitempty"`
	Superseded bool   `json:"superseded,omitempty"`
}

type reportConflict struct {
	Ecosystem string   `json:"ecosystem"`
	Name      string   `json:"name"`
	Versions  []string `json:"versions"`
	Retained  string   `json:"retained"`
}

type reportError struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Kind   string `json:"kind"`
	Parser string `json:"parser,omitempty"`
}

// JSON writes the report as an indented JSON document. Identical reports
// always produce identical bytes.
func (f Formatter) JSON(report Report) error {
	inventory := report.Inventory

	output := struct {
		Root      string           `json:"root"`
		Image     string           `json:"image,omitempty"`
		Distro    reportDistro     `json:"distro"`
		Packages  []reportPackage  `json:"packages"`
		Conflicts []reportConflict `json:"conflicts"`
		Errors    []reportError    `json:"errors"`
		Cancelled bool             `json:"cancelled"`
	}{
		Root:      inventory.Root,
		Image:     report.Image,
		Distro:    reportDistro(inventory.Distro),
		Packages:  []reportPackage{},
		Conflicts: []reportConflict{},
		Errors:    []reportError{},
		Cancelled: inventory.Cancelled,
	}

	for _, record := range inventory.Records {
		output.Packages = append(output.Packages, reportPackage{
			Ecosystem:  string(record.Ecosystem),
			Name:       record.Name,
			Version:    record.Version,
			SourcePath: record.SourcePath,
			Parser:     record.ParserID,
			Arch:       record.Arch,
			Uncertain:  record.Uncertain,
			Conflict:   record.Conflict,
			Superseded: record.Superseded,
		})
	}

	for _, conflict := range inventory.Conflicts {
		versions := append([]string{}, conflict.Versions...)
		output.Conflicts = append(output.Conflicts, reportConflict{
			Ecosystem: string(conflict.Ecosystem),
			Name:      conflict.Name,
			Versions:  versions,
			Retained:  conflict.Retained,
		})
	}

	for _, failure := range inventory.Errors {
		output.Errors = append(output.Errors, reportError{
			Path:   failure.Path,
			Reason: failure.Reason,
			Kind:   string(failure.Kind),
			Parser: failure.ParserID,
		})
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(&output)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return nil
}

// Markdown writes the report as a set of tables, one per ecosystem.
func (f Formatter) Markdown(report Report) {
	inventory := report.Inventory

	_, _ = fmt.Fprintf(f.writer, "# Package Inventory\n\n")
	_, _ = fmt.Fprintf(f.writer, "**Root:** `%s`\n\n", inventory.Root)
	if report.Image != "" {
		_, _ = fmt.Fprintf(f.writer, "**Image:** `%s`\n\n", report.Image)
	}
	if inventory.Distro.Name != "" {
		_, _ = fmt.Fprintf(f.writer, "**Distro:** %s %s\n\n", inventory.Distro.Name, inventory.Distro.Version)
	}
	if inventory.Cancelled {
		_, _ = fmt.Fprintf(f.writer, "**Warning:** the scan was cancelled, this inventory is incomplete.\n\n")
	}

	for _, group := range inventory.ByEcosystem() {
		_, _ = fmt.Fprintf(f.writer, "## %s\n\n", group.Ecosystem)
		_, _ = fmt.Fprintf(f.writer, "| Name | Version | Arch | Source | Notes |\n|---|---|---|---|---|\n")
		for _, record := range group.Records {
			_, _ = fmt.Fprintf(f.writer, "| %s | %s | %s | %s | %s |\n", record.Name, record.Version, record.Arch, record.SourcePath, notes(record))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(inventory.Conflicts) > 0 {
		_, _ = fmt.Fprintf(f.writer, "## Conflicts\n\n| Ecosystem | Name | Versions | Retained |\n|---|---|---|---|\n")
		for _, conflict := range inventory.Conflicts {
			_, _ = fmt.Fprintf(f.writer, "| %s | %s | %s | %s |\n", conflict.Ecosystem, conflict.Name, strings.Join(conflict.Versions, ", "), conflict.Retained)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(inventory.Errors) > 0 {
		_, _ = fmt.Fprintf(f.writer, "## Errors\n\n| Path | Kind | Parser | Reason |\n|---|---|---|---|\n")
		for _, failure := range inventory.Errors {
			reason := strings.ReplaceAll(failure.Reason, "|", "\\|")
			_, _ = fmt.Fprintf(f.writer, "| %s | %s | %s | %s |\n", failure.Path, failure.Kind, failure.ParserID, reason)
		}
		_, _ = fmt.Fprintln(f.writer)
	}
}

func notes(record extract.PackageRecord) string {
	var flags []string
	if record.Uncertain {
		flags = append(flags, "uncertain")
	}
	if record.Conflict {
		flags = append(flags, "conflict")
	}
	if record.Superseded {
		flags = append(flags, "superseded")
	}

	return strings.Join(flags, ", ")
}
