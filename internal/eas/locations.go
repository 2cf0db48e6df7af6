package eas

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Directory maps SAME location codes (PSSCCC) to place names. It is loaded
// once at startup and read-only afterwards, so lookups need no locking.
//
// The on-disk file keys counties by their standard six-digit SAME code with
// a zero part digit; lookups normalize the part digit away, so 148113
// (northwest Dallas County) and 048113 (all of Dallas County) both resolve
// to the same name.
type Directory struct {
	states   map[string]string // two-digit state FIPS
	counties map[string]string // six-digit SAME code, part digit zero
}

type directoryFile struct {
	States   map[string]string `yaml:"states"`
	Counties map[string]string `yaml:"counties"`
}

// NewDirectory returns an empty directory. Every lookup resolves to the
// unknown placeholder, which keeps decoding usable with no data file.
func NewDirectory() *Directory {
	return &Directory{
		states:   map[string]string{},
		counties: map[string]string{},
	}
}

// LoadDirectory reads a YAML location table from path.
func LoadDirectory(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read location directory: %w", err)
	}

	var file directoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse location directory %s: %w", path, err)
	}

	dir := NewDirectory()
	for code, name := range file.States {
		dir.states[code] = name
	}
	for code, name := range file.Counties {
		dir.counties[code] = name
	}
	return dir, nil
}

// Resolve maps a six-digit location code to a display name. Codes whose
// county part is 000 name the whole state. Unknown codes resolve to a
// placeholder, never an error; an alert with an unlisted county still has to
// go out.
func (d *Directory) Resolve(code string) string {
	if len(code) != 6 {
		return unknownLocation(code)
	}
	if code[3:] == "000" {
		if name, ok := d.states[code[1:3]]; ok {
			return name
		}
		return unknownLocation(code)
	}
	if name, ok := d.counties["0"+code[1:]]; ok {
		return name
	}
	return unknownLocation(code)
}

func unknownLocation(code string) string {
	return fmt.Sprintf("Unknown County/Area (%s)", code)
}
