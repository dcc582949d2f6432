package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/common"
	"github.com/chatgptnotes/nabh-online-saas-sub003/internal/entity"
)

// Manifest is a batch of evidence jobs read from YAML.
//
//	hospital_id: hope
//	jobs:
//	  - objective_code: HRM.4.a
//	    evidence_text: Staff are trained in fire safety
//	    files: [training.xlsx]
//	    upload_dir: uploads/hrm4
//	    links: [https://docs.google.com/spreadsheets/d/abc/edit]
type Manifest struct {
	HospitalID string    `yaml:"hospital_id"`
	Jobs       []JobSpec `yaml:"jobs"`
}

// JobSpec describes one evidence document and where its sources live.
type JobSpec struct {
	ObjectiveCode  string   `yaml:"objective_code"`
	ObjectiveTitle string   `yaml:"objective_title"`
	EvidenceText   string   `yaml:"evidence_text"`
	Mode           string   `yaml:"mode"`
	Instructions   string   `yaml:"instructions"`
	Files          []string `yaml:"files"`
	UploadDir      string   `yaml:"upload_dir"`
	Links          []string `yaml:"links"`
}

// SynthesisMode maps the manifest mode onto the pipeline mode; empty means generate.
func (j JobSpec) SynthesisMode() entity.SynthesisMode {
	if strings.EqualFold(strings.TrimSpace(j.Mode), string(entity.ModeFormat)) {
		return entity.ModeFormat
	}
	return entity.ModeGenerate
}

func (j JobSpec) sources() []string {
	out := make([]string, 0, len(j.Files)+len(j.Links)+1)
	out = append(out, j.Files...)
	out = append(out, j.Links...)
	if strings.TrimSpace(j.UploadDir) != "" {
		out = append(out, j.UploadDir)
	}
	return out
}

// LoadManifest reads and validates a manifest. Relative file and directory
// paths are resolved against the manifest's own directory.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError("MANIFEST_READ", "cannot read manifest "+path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	m.resolve(filepath.Dir(path))
	return m, nil
}

// ParseManifest decodes and validates manifest YAML. Unknown keys are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalWithOptions(data, &m, yaml.DisallowUnknownField()); err != nil {
		return nil, common.NewAppError("MANIFEST_PARSE", "malformed manifest", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every job and rejects repeated objective codes.
func (m *Manifest) Validate() error {
	v := common.NewValidator()
	v.Field("hospital_id", m.HospitalID, common.MaxLength(100))
	if len(m.Jobs) == 0 {
		v.Field("jobs", []string(nil), common.Required)
	}

	seen := make(map[string]bool, len(m.Jobs))
	for i, j := range m.Jobs {
		prefix := fmt.Sprintf("jobs[%d].", i)
		v.Field(prefix+"objective_code", j.ObjectiveCode, common.Required, common.ObjectiveCode, unique(seen))
		v.Field(prefix+"objective_title", j.ObjectiveTitle, common.MaxLength(500))
		v.Field(prefix+"mode", j.Mode, oneOf("", string(entity.ModeGenerate), string(entity.ModeFormat)))
		v.Field(prefix+"sources", j.sources(), common.Required)
		for k, link := range j.Links {
			v.Field(fmt.Sprintf("%slinks[%d]", prefix, k), link, common.HTTPURL)
		}
	}
	return v.Err()
}

func (m *Manifest) resolve(base string) {
	abs := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i := range m.Jobs {
		j := &m.Jobs[i]
		for k := range j.Files {
			j.Files[k] = abs(j.Files[k])
		}
		j.UploadDir = abs(j.UploadDir)
	}
}

// Job returns the job for an objective code.
func (m *Manifest) Job(objectiveCode string) (JobSpec, bool) {
	for _, j := range m.Jobs {
		if strings.EqualFold(j.ObjectiveCode, objectiveCode) {
			return j, true
		}
	}
	return JobSpec{}, false
}

func oneOf(allowed ...string) common.ValidationRule {
	return func(fieldName string, value interface{}) *common.ValidationError {
		str, _ := value.(string)
		str = strings.ToLower(strings.TrimSpace(str))
		for _, a := range allowed {
			if str == a {
				return nil
			}
		}
		return &common.ValidationError{Field: fieldName, Value: value, Message: "must be one of " + strings.Join(allowed[1:], ", ")}
	}
}

func unique(seen map[string]bool) common.ValidationRule {
	return func(fieldName string, value interface{}) *common.ValidationError {
		key := strings.ToUpper(strings.TrimSpace(fmt.Sprint(value)))
		if key == "" {
			return nil
		}
		if seen[key] {
			return &common.ValidationError{Field: fieldName, Value: value, Message: "appears more than once"}
		}
		seen[key] = true
		return nil
	}
}
