package vault

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// ManifestFile is the optional vault-root manifest name.
const ManifestFile = "gantry.toml"

// Manifest is the vault-root configuration file. Everything is optional;
// a vault with no manifest uses the default directory layout.
type Manifest struct {
	Project     string      `toml:"project"`
	Workstreams []string    `toml:"workstreams"`
	Directories Directories `toml:"directories"`
}

// Directories overrides the per-type folder names under the vault root.
type Directories struct {
	Milestones string `toml:"milestones"`
	Stories    string `toml:"stories"`
	Tasks      string `toml:"tasks"`
	Decisions  string `toml:"decisions"`
	Documents  string `toml:"documents"`
	Archive    string `toml:"archive"`
}

// LoadManifest reads gantry.toml from the vault root. A missing file is
// not an error: defaults apply.
func LoadManifest(root string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(root, ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, fmt.Errorf("reading %s: %w", ManifestFile, err)
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing %s: %w", ManifestFile, err)
	}
	return m, nil
}

// dirFor returns the manifest's folder name for a type, falling back to
// the built-in default.
func (m Manifest) dirFor(t EntityType) string {
	var override string
	switch t {
	case TypeMilestone:
		override = m.Directories.Milestones
	case TypeStory:
		override = m.Directories.Stories
	case TypeTask:
		override = m.Directories.Tasks
	case TypeDecision:
		override = m.Directories.Decisions
	case TypeDocument:
		override = m.Directories.Documents
	}
	if override != "" {
		return override
	}
	return t.Dir()
}

// archiveDir returns the manifest's archive folder name or "archive".
func (m Manifest) archiveDir() string {
	if m.Directories.Archive != "" {
		return m.Directories.Archive
	}
	return "archive"
}
