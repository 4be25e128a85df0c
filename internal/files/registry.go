package files

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

// ElementPrefix is prepended to the caller's element id when a field is mounted.
const ElementPrefix = "file-uploader-"

var (
	ErrFieldNotMounted = errors.New("file field not mounted")
	ErrNoFieldKey      = errors.New("field key is required")
)

type FieldConfig struct {
	FieldKey      string       `json:"fieldKey"`
	TableName     string       `json:"tableName"`
	ExistingFiles []Descriptor `json:"existingFiles"`
}

type field struct {
	elementID string
	config    FieldConfig
	files     []Descriptor
	lastSync  string
}

// Registry keeps the state of mounted upload fields, keyed by element id.
// Several elements may share a field key; calls by key go to the one mounted
// most recently that is still mounted.
type Registry struct {
	mu       sync.Mutex
	conv     Converter
	elements map[string]*field
	owners   map[string][]string // field key -> element ids in mount order
}

func NewRegistry(conv Converter) *Registry {
	return &Registry{
		conv:     conv,
		elements: make(map[string]*field),
		owners:   make(map[string][]string),
	}
}

func ElementID(id string) string {
	if strings.HasPrefix(id, ElementPrefix) {
		return id
	}
	return ElementPrefix + id
}

// Mount registers the field under ElementID(elementID), replacing any field
// already mounted there, and loads the config's existing files into it.
func (r *Registry) Mount(elementID string, cfg FieldConfig) (string, error) {
	if cfg.FieldKey == "" {
		return "", ErrNoFieldKey
	}
	id := ElementID(elementID)

	f := &field{elementID: id, config: cfg}

	r.mu.Lock()
	prev := r.elements[id]
	if prev != nil {
		r.detach(prev)
	}
	r.attach(f)
	r.mu.Unlock()

	if _, err := r.Sync(cfg.FieldKey, cfg.ExistingFiles); err != nil {
		// откатываем монтирование, предыдущее поле возвращаем на место
		r.mu.Lock()
		if r.elements[id] == f {
			r.detach(f)
			if prev != nil {
				r.attach(prev)
			}
		}
		r.mu.Unlock()
		return "", err
	}
	return id, nil
}

func (r *Registry) Unmount(elementID string) bool {
	id := ElementID(elementID)
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.elements[id]
	if !ok {
		return false
	}
	r.detach(f)
	return true
}

// attach and detach expect r.mu to be held.
func (r *Registry) attach(f *field) {
	r.elements[f.elementID] = f
	key := f.config.FieldKey
	r.owners[key] = append(r.owners[key], f.elementID)
}

func (r *Registry) detach(f *field) {
	delete(r.elements, f.elementID)
	key := f.config.FieldKey
	ids := r.owners[key][:0]
	for _, id := range r.owners[key] {
		if id != f.elementID {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		delete(r.owners, key)
		return
	}
	r.owners[key] = ids
}

func (r *Registry) UpdateFiles(fieldKey string, files []Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.lookup(fieldKey)
	if f == nil {
		return ErrFieldNotMounted
	}
	f.files = append([]Descriptor(nil), files...)
	return nil
}

func (r *Registry) ClearField(fieldKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.lookup(fieldKey)
	if f == nil {
		return ErrFieldNotMounted
	}
	f.files = nil
	return nil
}

func (r *Registry) Files(fieldKey string) ([]Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.lookup(fieldKey)
	if f == nil {
		return nil, ErrFieldNotMounted
	}
	out := make([]Descriptor, len(f.files))
	copy(out, f.files)
	return out, nil
}

// Sync pushes an externally held file set into the field. It is a no-op when
// the set equals the last synced one. API-format sets are converted to the UI
// format first; an empty set clears the field. The returned flag reports
// whether the field was touched.
func (r *Registry) Sync(fieldKey string, existing []Descriptor) (bool, error) {
	encoded, err := json.Marshal(existing)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	f := r.lookup(fieldKey)
	if f == nil {
		r.mu.Unlock()
		return false, ErrFieldNotMounted
	}
	if f.lastSync == string(encoded) {
		r.mu.Unlock()
		return false, nil
	}
	r.mu.Unlock()

	toApply := existing
	if len(toApply) > 0 && IsAPIFormat(toApply) && r.conv != nil {
		if toApply, err = r.conv.ToUIFormat(toApply); err != nil {
			return false, err
		}
	}

	if len(toApply) > 0 {
		err = r.UpdateFiles(fieldKey, toApply)
	} else {
		err = r.ClearField(fieldKey)
	}
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	if f := r.lookup(fieldKey); f != nil {
		f.lastSync = string(encoded)
	}
	r.mu.Unlock()
	return true, nil
}

// lookup expects r.mu to be held.
func (r *Registry) lookup(fieldKey string) *field {
	ids := r.owners[fieldKey]
	if len(ids) == 0 {
		return nil
	}
	return r.elements[ids[len(ids)-1]]
}
