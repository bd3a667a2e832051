package retrieval

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed kb.yaml
var defaultSeed []byte

type seedFile struct {
	Documents []SourceDocument `yaml:"documents"`
}

// LoadSeed decodes a YAML document list of the form
//
//	documents:
//	  - id: doc-001
//	    text: ...
//	    source: password-reset-guide.md
//	    category: password_reset
func LoadSeed(r io.Reader) ([]SourceDocument, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return f.Documents, nil
}

// LoadSeedFile reads a seed file from disk.
func LoadSeedFile(path string) ([]SourceDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadSeed(f)
}

// DefaultSeed returns the bundled starter knowledge base.
func DefaultSeed() []SourceDocument {
	var f seedFile
	if err := yaml.Unmarshal(defaultSeed, &f); err != nil {
		panic(fmt.Sprintf("retrieval: bundled seed is invalid: %v", err))
	}
	return f.Documents
}
