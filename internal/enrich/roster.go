package enrich

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

//go:embed roster.yaml
var defaultRosterYAML []byte

// Roster is the fallback name pool plus the equipment and incident catalogues.
type Roster struct {
	Staff       []entity.StaffRecord      `yaml:"staff"`
	Consultants []entity.ConsultantRecord `yaml:"consultants"`
	Equipment   []entity.EquipmentRecord  `yaml:"equipment"`
	Incidents   []entity.IncidentRecord   `yaml:"incidents"`
}

// ParseRoster decodes a roster document. A roster without staff or consultants
// is rejected because it could leave the name pool empty.
func ParseRoster(data []byte) (Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("decode roster: %w", err)
	}
	if len(r.Staff) == 0 {
		return Roster{}, fmt.Errorf("roster has no staff")
	}
	if len(r.Consultants) == 0 {
		return Roster{}, fmt.Errorf("roster has no consultants")
	}
	return r, nil
}

// LoadRoster reads a roster file; an empty path yields DefaultRoster.
func LoadRoster(path string) (Roster, error) {
	if path == "" {
		return DefaultRoster()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster %s: %w", path, err)
	}
	return ParseRoster(data)
}

// DefaultRoster is the roster compiled into the binary.
func DefaultRoster() (Roster, error) {
	return ParseRoster(defaultRosterYAML)
}
