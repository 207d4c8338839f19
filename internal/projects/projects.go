// Package projects recognizes directories that are software-project roots so
// the scanner can treat them as single atomic items.
package projects

import (
	"os"
	"strings"
)

// markers maps a lowercased child name to the project label it implies.
// Ordering in markerOrder decides which label wins when several are present.
var markers = map[string]string{
	".git":             "Git repository",
	".svn":             "Subversion repository",
	".hg":              "Mercurial repository",
	".idea":            "JetBrains project",
	".vscode":          "VS Code project",
	"go.mod":           "Go module",
	"package.json":     "Node.js project",
	"cargo.toml":       "Rust crate",
	"pyproject.toml":   "Python project",
	"setup.py":         "Python project",
	"requirements.txt": "Python project",
	"pom.xml":          "Maven project",
	"build.gradle":     "Gradle project",
	"makefile":         "Make project",
	"cmakelists.txt":   "CMake project",
	"__pycache__":      "Python project",
	"node_modules":     "Node.js project",
	".venv":            "Python project",
	"venv":             "Python project",
}

var markerOrder = []string{
	".git", ".svn", ".hg",
	"go.mod", "package.json", "cargo.toml", "pyproject.toml", "setup.py",
	"requirements.txt", "pom.xml", "build.gradle", "makefile", "cmakelists.txt",
	".idea", ".vscode",
	"__pycache__", "node_modules", ".venv", "venv",
}

// IsProjectRoot lists only the immediate children of dir and reports the
// label of the first matching marker. Unreadable directories are treated as
// "not a project" so scanning can continue elsewhere.
func IsProjectRoot(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	present := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if _, known := markers[name]; known {
			present[name] = struct{}{}
		}
	}
	if len(present) == 0 {
		return "", false
	}

	for _, name := range markerOrder {
		if _, ok := present[name]; ok {
			return markers[name], true
		}
	}
	return "", false
}
