package wasm

// Customs is the ordered collection of a module's custom sections.
// Names are not required to be unique; Remove drops every match.
type Customs struct {
	sections []CustomSection
}

// Add appends a section.
func (c *Customs) Add(s CustomSection) {
	c.sections = append(c.sections, s)
}

// Remove deletes every section called name and returns how many were
// removed. Removing an absent name is not an error.
func (c *Customs) Remove(name string) int {
	kept := c.sections[:0]
	removed := 0
	for _, s := range c.sections {
		if s.Name == name {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	clear(c.sections[len(kept):])
	c.sections = kept
	return removed
}

// Get returns the first section called name.
func (c *Customs) Get(name string) (CustomSection, bool) {
	for _, s := range c.sections {
		if s.Name == name {
			return s, true
		}
	}
	return CustomSection{}, false
}

// Count returns the number of sections called name.
func (c *Customs) Count(name string) int {
	n := 0
	for _, s := range c.sections {
		if s.Name == name {
			n++
		}
	}
	return n
}

// Names returns section names in order, duplicates included.
func (c *Customs) Names() []string {
	names := make([]string, len(c.sections))
	for i, s := range c.sections {
		names[i] = s.Name
	}
	return names
}

// All returns a copy of the sections in order.
func (c *Customs) All() []CustomSection {
	out := make([]CustomSection, len(c.sections))
	copy(out, c.sections)
	return out
}

// Len returns the number of sections.
func (c *Customs) Len() int {
	return len(c.sections)
}
