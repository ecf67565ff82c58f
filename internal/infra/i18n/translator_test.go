//go:build !integration

package i18n

import (
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	translator, err := newTranslatorFromBytes([]byte("greeting: привіт\nwelcome_user: привіт %s"))
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "привіт" {
			t.Errorf("wanted 'привіт', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted 'nonexistent_key', got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := translator.T("welcome_user", "Олена"); got != "привіт Олена" {
			t.Errorf("wanted 'привіт Олена', got '%s'", got)
		}
	})
}

func TestNewTranslator_FromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/xx.yaml":      {Data: []byte("a: b")},
		"locales/rules-xx.txt": {Data: []byte("be nice")},
	}
	tr, err := NewTranslator(fsys, "xx")
	if err != nil {
		t.Fatalf("NewTranslator failed: %v", err)
	}
	if tr.T("a") != "b" || tr.Rules() != "be nice" {
		t.Errorf("unexpected translator state: %q %q", tr.T("a"), tr.Rules())
	}

	if _, err := NewTranslator(fstest.MapFS{"locales/xx.yaml": {Data: []byte("a: b")}}, "xx"); err == nil {
		t.Error("expected error when rules file is missing")
	}
}

func TestEmbeddedLocalesShareKeys(t *testing.T) {
	en, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("en: %v", err)
	}
	uk, err := NewTranslator(LocalesFS, "uk")
	if err != nil {
		t.Fatalf("uk: %v", err)
	}
	for k := range en.translations {
		if _, ok := uk.translations[k]; !ok {
			t.Errorf("uk locale is missing key %q", k)
		}
	}
	for k := range uk.translations {
		if _, ok := en.translations[k]; !ok {
			t.Errorf("en locale is missing key %q", k)
		}
	}
}
