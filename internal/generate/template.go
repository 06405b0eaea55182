package generate

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// NamePlaceholder is replaced with the lead's name when rendering.
const NamePlaceholder = "{name}"

//go:embed templates.yaml
var builtinYAML []byte

// Template is a built-in message template.
type Template struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Text string `yaml:"text" json:"text"`
}

type catalogFile struct {
	Templates []Template `yaml:"templates"`
}

var (
	catalogOnce sync.Once
	catalog     []Template
	catalogErr  error
)

// ParseCatalog decodes a template catalog document.
func ParseCatalog(data []byte) ([]Template, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "generate: parse template catalog")
	}
	seen := make(map[string]bool, len(f.Templates))
	for _, t := range f.Templates {
		if t.ID == "" || strings.TrimSpace(t.Text) == "" {
			return nil, eris.Errorf("generate: template %q is missing id or text", t.Name)
		}
		if seen[t.ID] {
			return nil, eris.Errorf("generate: duplicate template id %q", t.ID)
		}
		seen[t.ID] = true
	}
	return f.Templates, nil
}

// Builtins returns the embedded template catalog.
func Builtins() ([]Template, error) {
	catalogOnce.Do(func() {
		catalog, catalogErr = ParseCatalog(builtinYAML)
	})
	return catalog, catalogErr
}

// LookupBuiltin returns the built-in template with the given id.
func LookupBuiltin(id string) (Template, bool) {
	templates, err := Builtins()
	if err != nil {
		return Template{}, false
	}
	for _, t := range templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Render replaces every {name} in text with name.
func Render(text, name string) string {
	return strings.ReplaceAll(text, NamePlaceholder, name)
}
