package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// codec converts between the on-disk representation and a flat map.
type codec interface {
	encode(data map[string]string) ([]byte, error)
	decode(raw []byte) (map[string]string, error)
	// check reports whether value can be stored by this codec.
	check(value string) error
}

// codecFor picks the codec from the file extension.
func codecFor(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return tomlCodec{}, nil
	case ".yaml", ".yml":
		return yamlCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported store file extension %q (use .toml, .yaml or .yml)", filepath.Ext(path))
	}
}

// tomlCodec writes one `key = "value"` line per entry. The encoder sorts
// keys and escapes quotes, backslashes and newlines, so any string value
// survives a round trip.
type tomlCodec struct{}

func (tomlCodec) encode(data map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TOML documents must be UTF-8.
func (tomlCodec) check(value string) error {
	if !utf8.ValidString(value) {
		return errors.New("value is not valid UTF-8")
	}
	return nil
}

// decode accepts bare integers and booleans as well as strings: older
// writers stored the pid unquoted (ftp_pid = 1234) and the running flag as
// a boolean (ftp_running = true), which maps to "1"/"0".
func (tomlCodec) decode(raw []byte) (map[string]string, error) {
	var generic map[string]interface{}
	if err := toml.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(generic))
	for k, v := range generic {
		switch tv := v.(type) {
		case string:
			out[k] = tv
		case int64:
			out[k] = strconv.FormatInt(tv, 10)
		case float64:
			out[k] = strconv.FormatFloat(tv, 'f', -1, 64)
		case bool:
			out[k] = "0"
			if tv {
				out[k] = "1"
			}
		default:
			return nil, fmt.Errorf("key %q: unsupported value of type %T (store is flat)", k, v)
		}
	}
	return out, nil
}

// yamlCodec writes a flat YAML mapping. yaml.Marshal on map[string]string
// produces alphabetical key ordering.
type yamlCodec struct{}

func (yamlCodec) encode(data map[string]string) ([]byte, error) {
	return yaml.Marshal(data)
}

// yaml.v3 writes invalid UTF-8 as !!binary, which decodes back unchanged.
func (yamlCodec) check(string) error { return nil }

func (yamlCodec) decode(raw []byte) (map[string]string, error) {
	out := make(map[string]string)
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = make(map[string]string)
	}
	return out, nil
}
