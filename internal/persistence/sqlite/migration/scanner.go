package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Migration is one versioned SQL file.
type Migration struct {
	Version     string
	Description string
	SQL         string
	File        string
	Checksum    string
}

// Scan reads every migration in dir, ordered by numeric version.
func Scan(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, &Error{File: dir, Operation: "read directory", Err: err}
	}

	var migrations []Migration
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		m, err := parse(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if other, ok := seen[m.Version]; ok {
			return nil, &Error{
				Version:   m.Version,
				File:      entry.Name(),
				Operation: "check duplicates",
				Err:       fmt.Errorf("%w: also defined in %s", ErrDuplicateVersion, other),
			}
		}
		seen[m.Version] = entry.Name()
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		a, _ := strconv.Atoi(migrations[i].Version)
		b, _ := strconv.Atoi(migrations[j].Version)
		return a < b
	})
	return migrations, nil
}

// ValidateFileName checks the {version}_{description}.sql convention.
func ValidateFileName(name string) error {
	if !fileNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q does not match {version}_{description}.sql", ErrInvalidMigrationFile, name)
	}
	return nil
}

func parse(fsys fs.FS, file string) (Migration, error) {
	name := path.Base(file)
	if err := ValidateFileName(name); err != nil {
		return Migration{}, &Error{File: name, Operation: "validate filename", Err: err}
	}
	matches := fileNamePattern.FindStringSubmatch(name)

	content, err := fs.ReadFile(fsys, file)
	if err != nil {
		return Migration{}, &Error{Version: matches[1], File: name, Operation: "read file", Err: err}
	}
	if len(splitStatements(string(content))) == 0 {
		return Migration{}, &Error{Version: matches[1], File: name, Operation: "parse SQL", Err: ErrEmptyMigration}
	}

	sum := sha256.Sum256(content)
	return Migration{
		Version:     matches[1],
		Description: strings.ReplaceAll(matches[2], "_", " "),
		SQL:         string(content),
		File:        name,
		Checksum:    hex.EncodeToString(sum[:]),
	}, nil
}

// splitStatements splits a script on semicolons after dropping "--" comments.
func splitStatements(script string) []string {
	var cleaned strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		cleaned.WriteString(line)
		cleaned.WriteByte('\n')
	}

	var statements []string
	for _, stmt := range strings.Split(cleaned.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
