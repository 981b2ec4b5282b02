package metadata

// Visibility is the access prefix of a canister metadata section.
type Visibility string

const (
	Public  Visibility = "icp:public"
	Private Visibility = "icp:private"
)

// Candid metadata section names, without the visibility prefix.
const (
	CandidService = "candid:service"
	CandidArgs    = "candid:args"
)

// SectionName joins a visibility and a metadata name, as in
// "icp:public candid:service".
func SectionName(vis Visibility, name string) string {
	return string(vis) + " " + name
}

// CandidSections returns the sections that publish a canister's Candid
// interface. The args section is only included when initArg is set.
func CandidSections(vis Visibility, service, initArg string) []CustomSection {
	sections := []CustomSection{{Name: SectionName(vis, CandidService), Data: service}}
	if initArg != "" {
		sections = append(sections, CustomSection{Name: SectionName(vis, CandidArgs), Data: initArg})
	}
	return sections
}

// ParseVisibility maps "public" and "private", with or without the icp:
// prefix, to a Visibility.
func ParseVisibility(s string) (Visibility, bool) {
	switch s {
	case "public", string(Public):
		return Public, true
	case "private", string(Private):
		return Private, true
	}
	return "", false
}
