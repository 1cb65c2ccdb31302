package extract

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var osReleasePaths = []string{
	filepath.Join("etc", "os-release"),
	filepath.Join("usr", "lib", "os-release"),
}

// DetectDistro reads the os-release file of the tree at root. A missing or
// unreadable file yields an empty Distro. Symbolic links are not followed.
func DetectDistro(root string) (Distro, error) {
	for _, rel := range osReleasePaths {
		path := filepath.Join(root, rel)

		info, err := os.Lstat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			return Distro{}, err
		}

		if !info.Mode().IsRegular() {
			continue
		}

		file, err := os.Open(path)
		if err != nil {
			return Distro{}, err
		}

		release, err := parseOSRelease(file)
		if err2 := file.Close(); err2 != nil && err == nil {
			err = err2
		}
		if err != nil {
			return Distro{}, err
		}

		return Distro{
			Name:    release["ID"],
			Version: release["VERSION_ID"],
		}, nil
	}

	return Distro{}, nil
}

func parseOSRelease(content io.Reader) (map[string]string, error) {
	scanner := bufio.NewScanner(content)
	release := map[string]string{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		if unquoted, err := strconv.Unquote(value); err == nil {
			value = unquoted
		} else {
			value = strings.Trim(value, `"'`)
		}

		release[strings.TrimSpace(key)] = value
	}

	return release, scanner.Err()
}
