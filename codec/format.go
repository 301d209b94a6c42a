package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amp-labs/amp-fsm/statemachine"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of the snapshot payload.
type Format byte

const (
	FormatJSON Format = iota + 1
	FormatYAML
)

// ParseFormat parses "json" or "yaml" (case insensitive). Empty means json.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("format(%d)", byte(f))
	}
}

func (f Format) valid() bool {
	return f == FormatJSON || f == FormatYAML
}

func (f Format) marshal(snap statemachine.Snapshot) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.Marshal(snap)
	case FormatYAML:
		return yaml.Marshal(snap)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, byte(f))
	}
}

func (f Format) unmarshal(data []byte) (statemachine.Snapshot, error) {
	var snap statemachine.Snapshot

	var err error

	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &snap)
	case FormatYAML:
		err = yaml.Unmarshal(data, &snap)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownFormat, byte(f))
	}

	return snap, err
}
