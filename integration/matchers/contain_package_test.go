package matchers_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fridex/pkgextract/integration/matchers"
	"github.com/onsi/gomega/types"
	"github.com/sclevine/spec"

	. "github.com/onsi/gomega"
)

func testContainPackage(t *testing.T, context spec.G, it spec.S) {
	var (
		Expect = NewWithT(t).Expect

		matcher types.GomegaMatcher
	)

	context("Match", func() {
		context("when the report contains the package", func() {
			it.Before(func() {
				matcher = matchers.ContainPackage("deb", "libc6", "2.36-9")
			})

			it("returns true", func() {
				match, err := matcher.Match(exampleReport)
				Expect(err).NotTo(HaveOccurred())
				Expect(match).To(BeTrue())
			})
		})

		context("when the version is a matcher", func() {
			it.Before(func() {
				matcher = matchers.ContainPackage("python", "requests", HavePrefix("2.31"))
			})

			it("returns true", func() {
				match, err := matcher.Match([]byte(exampleReport))
				Expect(err).NotTo(HaveOccurred())
				Expect(match).To(BeTrue())
			})
		})

		context("when the report is a file", func() {
			var path string

			it.Before(func() {
				path = filepath.Join(t.TempDir(), "report.json")
				Expect(os.WriteFile(path, []byte(exampleReport), 0600)).To(Succeed())

				matcher = matchers.ContainPackage("deb", "libc6", "2.36-9")
			})

			it("returns true", func() {
				match, err := matcher.Match(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(match).To(BeTrue())
			})
		})

		context("when the version does not match", func() {
			it.Before(func() {
				matcher = matchers.ContainPackage("deb", "libc6", "2.31-13")
			})

			it("returns false", func() {
				match, err := matcher.Match(exampleReport)
				Expect(err).NotTo(HaveOccurred())
				Expect(match).To(BeFalse())
			})
		})

		context("when the package is only superseded", func() {
			it.Before(func() {
				matcher = matchers.ContainPackage("python", "urllib3", "1.26.5")
			})

			it("returns false", func() {
				match, err := matcher.Match(exampleReport)
				Expect(err).NotTo(HaveOccurred())
				Expect(match).To(BeFalse())
			})
		})

		context("when the package is from another ecosystem", func() {
			it.Before(func() {
				matcher = matchers.ContainPackage("node", "requests", "2.31.0")
			})

			it("returns false", func() {
				match, err := matcher.Match(exampleReport)
				Expect(err).NotTo(HaveOccurred())
				Expect(match).To(BeFalse())
			})
		})

		context("failure cases", func() {
			context("when the actual is not a report", func() {
				it.Before(func() {
					matcher = matchers.ContainPackage("deb", "libc6", "2.36-9")
				})

				it("returns an error", func() {
					_, err := matcher.Match("not json")
					Expect(err).To(MatchError(ContainSubstring("actual is not a JSON report")))
				})
			})

			context("when the actual is of an unsupported type", func() {
				it.Before(func() {
					matcher = matchers.ContainPackage("deb", "libc6", "2.36-9")
				})

				it("returns an error", func() {
					_, err := matcher.Match(42)
					Expect(err).To(MatchError("actual must be a <string>, <[]byte> or <fmt.Stringer>, received 42"))
				})
			})

			context("when the version is neither a string nor a matcher", func() {
				it.Before(func() {
					matcher = matchers.ContainPackage("deb", "libc6", 236)
				})

				it("returns an error", func() {
					_, err := matcher.Match(exampleReport)
					Expect(err).To(MatchError("version must be a <string> or matcher, received 236"))
				})
			})
		})
	})

	context("FailureMessage", func() {
		context("when the package is missing", func() {
			it.Before(func() {
				matcher = matchers.ContainPackage("rpm", "bash", "5.1.8")
			})

			it("names the package", func() {
				match, err := matcher.Match(exampleReport)
				Expect(err).NotTo(HaveOccurred())
				Expect(match).To(BeFalse())

				Expect(matcher.FailureMessage(exampleReport)).To(Equal("Expected report\nto contain package\n\trpm/bash"))
			})
		})

		context("when the version does not match", func() {
			it.Before(func() {
				matcher = matchers.ContainPackage("deb", "libc6", "2.31-13")
			})

			it("lists the versions that were found", func() {
				match, err := matcher.Match(exampleReport)
				Expect(err).NotTo(HaveOccurred())
				Expect(match).To(BeFalse())

				message := matcher.FailureMessage(exampleReport)
				Expect(message).To(ContainSubstring("Expected deb/libc6 with versions [2.36-9]"))
				Expect(message).To(ContainSubstring("to equal"))
			})
		})
	})

	context("NegatedFailureMessage", func() {
		it.Before(func() {
			matcher = matchers.ContainPackage("deb", "libc6", "2.36-9")
		})

		it("names the package", func() {
			Expect(matcher.NegatedFailureMessage(exampleReport)).To(Equal("Expected report\nnot to contain package\n\tdeb/libc6 matching \"2.36-9\""))
		})
	})
}
