package files

import (
	"errors"
	"fmt"
)

// Descriptor is one attachment as the upload SDK hands it over. The API format
// keys the descriptor by "Id", the UI format by "id".
type Descriptor map[string]any

var ErrNoName = errors.New("file has no name")

// keyPairs lists the API/UI spellings of the keys the SDK knows about.
var keyPairs = [][2]string{
	{"Id", "id"},
	{"Name", "name"},
	{"Size", "size"},
	{"Type", "type"},
	{"Url", "url"},
	{"Path", "path"},
}

func (d Descriptor) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// IsAPIFormat reports whether the set carries "Id" keys and no "id" keys.
func IsAPIFormat(files []Descriptor) bool {
	var api, ui bool
	for _, f := range files {
		if f.Has("Id") {
			api = true
		}
		if f.Has("id") {
			ui = true
		}
	}
	return api && !ui
}

// FromAny converts a decoded JSON value (or a value produced by this package)
// into descriptors. Anything that is not a list of objects yields nil.
func FromAny(v any) []Descriptor {
	switch list := v.(type) {
	case []Descriptor:
		return list
	case []map[string]any:
		out := make([]Descriptor, 0, len(list))
		for _, m := range list {
			out = append(out, Descriptor(m))
		}
		return out
	case []any:
		out := make([]Descriptor, 0, len(list))
		for _, item := range list {
			switch m := item.(type) {
			case map[string]any:
				out = append(out, Descriptor(m))
			case Descriptor:
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// Converter is the format-conversion half of the upload SDK.
type Converter interface {
	ToUIFormat(files []Descriptor) ([]Descriptor, error)
	ToCreateFormat(files []Descriptor) ([]Descriptor, error)
}

// KeyCaseConverter converts between the two formats by renaming the known keys.
// Unknown keys are copied as is.
type KeyCaseConverter struct{}

func NewKeyCaseConverter() *KeyCaseConverter {
	return &KeyCaseConverter{}
}

func (c *KeyCaseConverter) ToUIFormat(files []Descriptor) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(files))
	for _, f := range files {
		out = append(out, rename(f, 0, 1))
	}
	return out, nil
}

// ToCreateFormat fails when a descriptor has no name: the store cannot attach
// an anonymous file.
func (c *KeyCaseConverter) ToCreateFormat(files []Descriptor) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(files))
	for i, f := range files {
		if !f.Has("name") && !f.Has("Name") {
			return nil, fmt.Errorf("file %d: %w", i, ErrNoName)
		}
		out = append(out, rename(f, 1, 0))
	}
	return out, nil
}

func rename(f Descriptor, from, to int) Descriptor {
	out := make(Descriptor, len(f))
	for k, v := range f {
		out[k] = v
	}
	for _, pair := range keyPairs {
		if v, ok := out[pair[from]]; ok {
			delete(out, pair[from])
			out[pair[to]] = v
		}
	}
	return out
}

// Conversion is the outcome of preparing attachments for a create call.
// Converted is false when the original descriptors are passed through, either
// because no converter is configured or because conversion failed (Err set).
type Conversion struct {
	Files     []Descriptor
	Converted bool
	Err       error
}

func ConvertForCreate(c Converter, files []Descriptor) Conversion {
	if c == nil {
		return Conversion{Files: files}
	}
	converted, err := c.ToCreateFormat(files)
	if err != nil {
		return Conversion{Files: files, Err: err}
	}
	return Conversion{Files: converted, Converted: true}
}
