package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Translator resolves message keys for one language.
type Translator struct {
	translations map[string]string
	rulesText    string
}

// NewTranslator loads locales/<lang>.yaml and locales/rules-<lang>.txt from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}

	rulesPath := path.Join("locales", fmt.Sprintf("rules-%s.txt", langCode))
	rules, err := fs.ReadFile(fsys, rulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", rulesPath, err)
	}
	t.rulesText = string(rules)
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns the formatted message for key, or key itself when unknown.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) Rules() string {
	return t.rulesText
}
