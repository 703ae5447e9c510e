package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var migrationFilePattern = regexp.MustCompile(`^\d{14}_[a-z0-9_]+\.sql$`)

// ValidateDir checks that every migration file follows the goose naming
// convention and carries both Up and Down sections.
func ValidateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	seen := map[string]string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !migrationFilePattern.MatchString(name) {
			return fmt.Errorf("migration %s does not match <version>_<name>.sql", name)
		}

		version := name[:14]
		if prev, dup := seen[version]; dup {
			return fmt.Errorf("duplicate migration version %s (%s and %s)", version, prev, name)
		}
		seen[version] = name

		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		text := string(content)
		if !strings.Contains(text, "-- +goose Up") {
			return fmt.Errorf("migration %s is missing the Up section", name)
		}
		if !strings.Contains(text, "-- +goose Down") {
			return fmt.Errorf("migration %s is missing the Down section", name)
		}
	}

	if len(seen) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}
	return nil
}
