package chunk

import (
	"errors"
	"fmt"
	"sort"

	"github.com/desertthunder/decklog/internal/shared"
)

// TagSize is the byte width of a chunk type tag.
const TagSize = 4

// Type says how the payload of a tag is decoded.
type Type int

const (
	Opaque Type = iota
	Container
	Leaf
)

func (t Type) String() string {
	switch t {
	case Container:
		return "container"
	case Leaf:
		return "leaf"
	default:
		return "opaque"
	}
}

// Registry maps chunk tags to their [Type] and, for leaves, their [Program].
//
// It is built once at startup and sealed by [Registry.Validate]; registering a tag afterwards panics.
type Registry struct {
	containers map[string]struct{}
	programs   map[string]Program
	records    map[string]struct{}
	sealed     bool
}

// NewRegistry returns an empty registry; every tag parses as [Opaque].
func NewRegistry() *Registry {
	return &Registry{
		containers: make(map[string]struct{}),
		programs:   make(map[string]Program),
		records:    make(map[string]struct{}),
	}
}

func (r *Registry) mustOpen(tag string) {
	if r.sealed {
		panic(fmt.Sprintf("chunk: registry sealed, cannot register %q", tag))
	}
}

// Container registers tag as holding child chunks.
func (r *Registry) Container(tag string) *Registry {
	r.mustOpen(tag)
	r.containers[tag] = struct{}{}
	return r
}

// Leaf registers tag as a leaf decoded with p.
func (r *Registry) Leaf(tag string, p Program) *Registry {
	r.mustOpen(tag)
	r.programs[tag] = p
	return r
}

// Record marks tag as producing one snapshot record per top-level chunk.
func (r *Registry) Record(tag string) *Registry {
	r.mustOpen(tag)
	r.records[tag] = struct{}{}
	return r
}

// Lookup returns the type registered for tag and its program for leaves.
func (r *Registry) Lookup(tag string) (Type, Program) {
	if _, ok := r.containers[tag]; ok {
		return Container, nil
	}
	if p, ok := r.programs[tag]; ok {
		return Leaf, p
	}
	return Opaque, nil
}

// IsRecord reports whether tag was registered with [Registry.Record].
func (r *Registry) IsRecord(tag string) bool {
	_, ok := r.records[tag]
	return ok
}

// Validate checks the registry for misconfiguration and seals it.
//
// Every problem wraps [shared.ErrInvalidRegistry]; a registry that fails validation is fatal at startup.
func (r *Registry) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{shared.ErrInvalidRegistry}, args...)...))
	}

	for _, tag := range sortedKeys(r.containers) {
		if len(tag) != TagSize {
			invalid("container tag %q must be %d bytes", tag, TagSize)
		}
		if _, ok := r.programs[tag]; ok {
			invalid("tag %q registered as both container and leaf", tag)
		}
	}

	for _, tag := range sortedKeys(r.programs) {
		if len(tag) != TagSize {
			invalid("leaf tag %q must be %d bytes", tag, TagSize)
		}
		for _, err := range validateProgram(r.programs[tag]) {
			invalid("leaf %q: %v", tag, err)
		}
	}

	for _, tag := range sortedKeys(r.records) {
		if kind, _ := r.Lookup(tag); kind == Opaque {
			invalid("record tag %q is not registered as container or leaf", tag)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	r.sealed = true
	return nil
}

func validateProgram(p Program) []error {
	var errs []error
	seen := make(map[string]Kind, len(p))

	for _, f := range p {
		switch {
		case f.Name == "":
			errs = append(errs, fmt.Errorf("field with empty name"))
			continue
		case f.Name == TrailingField:
			errs = append(errs, fmt.Errorf("field name %q is reserved", f.Name))
		case f.Width < 0:
			errs = append(errs, fmt.Errorf("field %q has negative width", f.Name))
		}
		if _, dup := seen[f.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate field %q", f.Name))
		}

		if f.LengthFrom != "" {
			if f.Kind != Text && f.Kind != Blob {
				errs = append(errs, fmt.Errorf("field %q: length source only applies to text and blob", f.Name))
			}
			src, ok := seen[f.LengthFrom]
			if !ok || intWidth(src) == 0 {
				errs = append(errs, fmt.Errorf("field %q: length source %q must be an earlier integer field", f.Name, f.LengthFrom))
			}
		} else if f.Kind == Text && f.Width == 0 {
			errs = append(errs, fmt.Errorf("text field %q needs a width or length source", f.Name))
		}

		seen[f.Name] = f.Kind
	}

	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
