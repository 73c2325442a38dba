package seed

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/patrickcap/exploronomics/countries"
	"github.com/patrickcap/exploronomics/errors"
	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var defaultRecords []byte

// recordsFile is the document form of a records file. A bare YAML or JSON
// list of countries is accepted as well.
type recordsFile struct {
	Countries []countries.Country `yaml:"countries"`
}

// DefaultRecords returns the built-in country list
func DefaultRecords() []countries.Country {
	records, err := LoadRecords(bytes.NewReader(defaultRecords))
	if err != nil {
		panic("seed: embedded countries.yaml is invalid: " + err.Error())
	}
	return records
}

// LoadRecords decodes country records from YAML or JSON
func LoadRecords(r io.Reader) ([]countries.Country, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrParse, err, "failed to read records")
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, errors.Wrap(errors.ErrParse, err, "failed to parse records")
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var list []countries.Country
		if err := root.Decode(&list); err != nil {
			return nil, errors.Wrap(errors.ErrParse, err, "failed to decode country list")
		}
		return list, nil
	case yaml.MappingNode:
		var doc recordsFile
		if err := root.Decode(&doc); err != nil {
			return nil, errors.Wrap(errors.ErrParse, err, "failed to decode records document")
		}
		return doc.Countries, nil
	default:
		return nil, errors.Newf(errors.ErrParse, "records must be a list or a mapping with a 'countries' key, line %d", root.Line)
	}
}

// LoadRecordsFile reads country records from a YAML or JSON file
func LoadRecordsFile(path string) ([]countries.Country, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFoundError(path, err)
		}
		return nil, errors.Wrapf(errors.ErrPermissionDenied, err, "failed to open records file '%s'", path)
	}
	defer f.Close()

	records, err := LoadRecords(f)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			appErr.WithContext("path", path)
		}
		return nil, err
	}
	return records, nil
}
