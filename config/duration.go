package config

import (
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// inspired by:
// - https://gist.github.com/ulexxander/a678baa2ae3454f9516a1cd7450ed6be
// - https://stackoverflow.com/questions/48050945/how-to-unmarshal-json-into-durations
// Duration is a wrapper around time.Duration that is written as a human readable string
// in JSON, YAML and TOML config files
type Duration time.Duration

// MarshalJSON implements the json.Marshaler interface
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (d *Duration) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(str))
}

// MarshalYAML implements the yaml.Marshaler interface
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// UnmarshalYAML implements the yaml.Unmarshaler interface
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(str))
}

// MarshalText implements the encoding.TextMarshaler interface, used by the TOML encoder
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface, used by the TOML decoder
func (d *Duration) UnmarshalText(b []byte) error {
	val, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(val)
	return nil
}

// String returns the string representation of the duration
func (d Duration) String() string {
	return time.Duration(d).String()
}
