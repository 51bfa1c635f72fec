// Package people exposes the identity directory consumed by the
// tagging pipeline. The directory itself is an external collaborator;
// this package defines the read-only lookup contract plus a static
// in-memory implementation loaded from YAML for local deployments.
package people

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Identity is one directory record: a canonical display name plus the
// alias strings it may appear under in free text. Matching is always
// case-insensitive.
type Identity struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Directory lists known identities. The tagging core only reads it.
type Directory interface {
	Identities() []Identity
}

// StaticDirectory is an in-memory Directory.
type StaticDirectory struct {
	identities []Identity
}

// NewStaticDirectory builds a directory from records, dropping entries
// with an empty canonical name and blank aliases.
func NewStaticDirectory(identities []Identity) *StaticDirectory {
	out := make([]Identity, 0, len(identities))
	for _, id := range identities {
		name := strings.TrimSpace(id.Name)
		if name == "" {
			continue
		}
		aliases := make([]string, 0, len(id.Aliases))
		for _, a := range id.Aliases {
			if a = strings.TrimSpace(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		out = append(out, Identity{Name: name, Aliases: aliases})
	}
	return &StaticDirectory{identities: out}
}

// Identities implements Directory.
func (d *StaticDirectory) Identities() []Identity {
	return d.identities
}

// Empty is a Directory with no identities; it disables the people pass.
var Empty Directory = &StaticDirectory{}

// directoryFile is the YAML shape of a directory document.
type directoryFile struct {
	People []Identity `yaml:"people"`
}

// LoadFile reads a directory document of the form:
//
//	people:
//	  - name: Jane Doe
//	    aliases: [jane, j.doe]
func LoadFile(path string) (*StaticDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading people directory %s: %w", path, err)
	}

	var doc directoryFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing people directory %s: %w", path, err)
	}

	return NewStaticDirectory(doc.People), nil
}
