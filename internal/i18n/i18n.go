package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed *.yaml
var bundled embed.FS

// Translator resolves localized strings using dot-separated keys.
type Translator interface {
	T(key string) string
	Lang() string
}

// Manager stores all available translations.
type Manager struct {
	translations map[string]map[string]string
	defaultLang  string
}

// Load loads the catalogs compiled into the binary.
func Load(defaultLang string) (*Manager, error) {
	return LoadFS(bundled, ".", defaultLang)
}

// LoadFromDir loads translations from a directory containing YAML files.
func LoadFromDir(dir, defaultLang string) (*Manager, error) {
	return LoadFS(os.DirFS(dir), ".", defaultLang)
}

// LoadFS loads every YAML catalog under root in fsys.
func LoadFS(fsys fs.FS, root, defaultLang string) (*Manager, error) {
	catalog, err := parseDir(fsys, root)
	if err != nil {
		return nil, err
	}

	if defaultLang == "" {
		defaultLang = "en"
	}

	if _, ok := catalog[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	return &Manager{translations: catalog, defaultLang: defaultLang}, nil
}

// Translator returns a translator for the requested language.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	norm := strings.ToLower(strings.TrimSpace(lang))
	if norm == "" || m.translations[norm] == nil {
		norm = m.defaultLang
	}

	return translator{
		lang:         norm,
		fallback:     m.defaultLang,
		translations: m.translations,
	}
}

// Format translates key and substitutes {{.Name}} placeholders from vars.
func Format(t Translator, key string, vars map[string]any) string {
	text := key
	if t != nil {
		text = t.T(key)
	}

	if len(vars) == 0 {
		return text
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(vars)*2)
	for _, name := range names {
		pairs = append(pairs, "{{."+name+"}}", fmt.Sprint(vars[name]))
	}

	return strings.NewReplacer(pairs...).Replace(text)
}

// Languages returns the loaded languages in sorted order.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	languages := make([]string, 0, len(m.translations))
	for lang := range m.translations {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}

// Missing lists the keys of the default language that lang does not define.
func (m *Manager) Missing(lang string) []string {
	if m == nil {
		return nil
	}

	own := m.translations[lang]
	var missing []string
	for key := range m.translations[m.defaultLang] {
		if _, ok := own[key]; !ok {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

type translator struct {
	lang         string
	fallback     string
	translations map[string]map[string]string
}

func (t translator) Lang() string {
	return t.lang
}

// T looks key up in the translator's language, then the default one, and
// returns the key itself when neither has it.
func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}

	for _, lang := range []string{t.lang, t.fallback} {
		if value, ok := t.translations[lang][key]; ok && value != "" {
			return value
		}
	}
	return key
}

// parseDir merges every YAML catalog in dir. Each file maps a language code
// to a tree of messages; later files override earlier keys.
func parseDir(fsys fs.FS, dir string) (map[string]map[string]string, error) {
	matches, err := fs.Glob(fsys, path.Join(dir, "*.y*ml"))
	if err != nil {
		return nil, fmt.Errorf("i18n: list %s: %w", dir, err)
	}
	sort.Strings(matches)

	catalog := make(map[string]map[string]string)
	loaded := 0
	for _, name := range matches {
		if ext := strings.ToLower(path.Ext(name)); ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", name, err)
		}

		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", name, err)
		}
		if err := mergeDocument(catalog, &doc); err != nil {
			return nil, fmt.Errorf("i18n: %s: %w", name, err)
		}
		loaded++
	}

	if loaded == 0 {
		return nil, fmt.Errorf("i18n: no yaml files found in %s", dir)
	}
	return catalog, nil
}

func mergeDocument(catalog map[string]map[string]string, doc *yaml.Node) error {
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: top level must map languages to messages", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		lang := strings.ToLower(strings.TrimSpace(root.Content[i].Value))
		if lang == "" {
			continue
		}
		if catalog[lang] == nil {
			catalog[lang] = make(map[string]string)
		}
		if err := flatten("", root.Content[i+1], catalog[lang]); err != nil {
			return err
		}
	}
	return nil
}

// flatten writes every scalar under node as a dotted key.
func flatten(prefix string, node *yaml.Node, out map[string]string) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if prefix != "" {
			out[prefix] = node.Value
		}
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := strings.TrimSpace(node.Content[i].Value)
			if key == "" {
				continue
			}
			if prefix != "" {
				key = prefix + "." + key
			}
			if err := flatten(key, node.Content[i+1], out); err != nil {
				return err
			}
		}
		return nil
	case yaml.AliasNode:
		return flatten(prefix, node.Alias, out)
	default:
		return fmt.Errorf("line %d: %s must be a string or a mapping", node.Line, prefix)
	}
}
