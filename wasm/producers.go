package wasm

import (
	"fmt"

	"github.com/wippyai/wasm-metadata/wasm/internal/binary"
)

// Producers field names defined by the tool conventions.
const (
	ProducersLanguage    = "language"
	ProducersProcessedBy = "processed-by"
	ProducersSDK         = "sdk"
)

// ProducerValue names a tool and its version.
type ProducerValue struct {
	Name    string
	Version string
}

// ProducerField is one field of the producers section.
type ProducerField struct {
	Name   string
	Values []ProducerValue
}

// Producers is the decoded "producers" custom section.
type Producers struct {
	Fields []ProducerField
}

// ParseProducers decodes the payload of a producers section.
func ParseProducers(data []byte) (*Producers, error) {
	r := binary.NewReader(data)
	fields, err := vec(r, readProducerField)
	if err != nil {
		return nil, fmt.Errorf("producers: %w", err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("producers: %w: %d trailing bytes", ErrSectionSize, r.Len())
	}
	return &Producers{Fields: fields}, nil
}

func readProducerField(r *binary.Reader) (ProducerField, error) {
	name, err := r.ReadName()
	if err != nil {
		return ProducerField{}, err
	}
	values, err := vec(r, readProducerValue)
	if err != nil {
		return ProducerField{}, fmt.Errorf("field %q: %w", name, err)
	}
	return ProducerField{Name: name, Values: values}, nil
}

func readProducerValue(r *binary.Reader) (ProducerValue, error) {
	name, err := r.ReadName()
	if err != nil {
		return ProducerValue{}, err
	}
	version, err := r.ReadName()
	if err != nil {
		return ProducerValue{}, err
	}
	return ProducerValue{Name: name, Version: version}, nil
}

// Add records v under field. An existing value with the same name is
// updated in place.
func (p *Producers) Add(field string, v ProducerValue) {
	for i := range p.Fields {
		f := &p.Fields[i]
		if f.Name != field {
			continue
		}
		for j := range f.Values {
			if f.Values[j].Name == v.Name {
				f.Values[j].Version = v.Version
				return
			}
		}
		f.Values = append(f.Values, v)
		return
	}
	p.Fields = append(p.Fields, ProducerField{Name: field, Values: []ProducerValue{v}})
}

// Get returns the values recorded under field.
func (p *Producers) Get(field string) []ProducerValue {
	for _, f := range p.Fields {
		if f.Name == field {
			return f.Values
		}
	}
	return nil
}

// Encode returns the section payload.
func (p *Producers) Encode() []byte {
	w := binary.NewWriter()
	w.WriteU32(uint32(len(p.Fields)))
	for _, f := range p.Fields {
		w.WriteName(f.Name)
		w.WriteU32(uint32(len(f.Values)))
		for _, v := range f.Values {
			w.WriteName(v.Name)
			w.WriteName(v.Version)
		}
	}
	return w.Bytes()
}
