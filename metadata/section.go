package metadata

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-metadata/wasm"
)

// CustomSection is a requested custom section. Data is stored verbatim
// as the section payload.
type CustomSection struct {
	Name string `json:"name" mapstructure:"name"`
	Data string `json:"data" mapstructure:"data"`
}

// Apply replaces the module's custom sections named in sections.
//
// Every existing section carrying a requested name is removed first.
// Then one section per distinct name is appended with the data of the
// last request for that name, ordered by those last occurrences. Other
// sections and all non-custom content are left untouched.
func Apply(m *wasm.Module, sections []CustomSection) {
	last := make(map[string]int, len(sections))
	for i, s := range sections {
		last[s.Name] = i
	}

	for i, s := range sections {
		if last[s.Name] != i {
			continue
		}
		if n := m.Customs.Remove(s.Name); n > 0 {
			Logger().Debug("removed custom section", zap.String("section", s.Name), zap.Int("count", n))
		}
	}

	for i, s := range sections {
		if last[s.Name] != i {
			continue
		}
		m.Customs.Add(wasm.CustomSection{Name: s.Name, Data: []byte(s.Data)})
		Logger().Debug("added custom section", zap.String("section", s.Name), zap.Int("bytes", len(s.Data)))
	}
}
