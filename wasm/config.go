package wasm

// ParseConfig controls which well-known custom sections survive a
// parse/encode cycle.
type ParseConfig struct {
	// Processor is recorded under processed-by when
	// GenerateProducersSection is set.
	Processor ProducerValue

	// KeepNameSection retains the "name" debug section. When false the
	// parser consumes it and the module never emits it.
	KeepNameSection bool

	// GenerateProducersSection adds Processor to the producers section on
	// encode, creating the section if needed.
	GenerateProducersSection bool
}

// NewParseConfig returns the configuration used for metadata rewriting:
// name section retention as given, producers generation disabled.
func NewParseConfig(keepNameSection bool) ParseConfig {
	return ParseConfig{KeepNameSection: keepNameSection}
}

// ParseModule parses data keeping the name section.
func ParseModule(data []byte) (*Module, error) {
	return NewParseConfig(true).Parse(data)
}
