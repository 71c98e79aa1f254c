package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BundledCatalog(t *testing.T) {
	m, err := Load("en")
	require.NoError(t, err)

	tr := m.Translator("en")
	assert.Equal(t, "en", tr.Lang())
	assert.Equal(t, "Approve", tr.T("log.approve_button"))
	assert.Equal(t, "missing.key", tr.T("missing.key"))
}

func TestLoadFS_FallbackLanguage(t *testing.T) {
	fsys := fstest.MapFS{
		"en.yaml":   {Data: []byte("en:\n  greet: Hello\n  bye: Bye\n")},
		"de.yml":    {Data: []byte("de:\n  greet: Hallo\n")},
		"notes.txt": {Data: []byte("ignored")},
	}

	m, err := LoadFS(fsys, ".", "en")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"en", "de"}, m.Languages())

	de := m.Translator("DE")
	assert.Equal(t, "Hallo", de.T("greet"))
	assert.Equal(t, "Bye", de.T("bye"))

	unknown := m.Translator("fr")
	assert.Equal(t, "en", unknown.Lang())
}

func TestLoadFS_Errors(t *testing.T) {
	_, err := LoadFS(fstest.MapFS{"x.txt": {Data: []byte("x")}}, ".", "en")
	assert.Error(t, err)

	_, err = LoadFS(fstest.MapFS{"de.yaml": {Data: []byte("de:\n  a: b\n")}}, ".", "en")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	m, err := Load("en")
	require.NoError(t, err)
	tr := m.Translator("en")

	got := Format(tr, "pagination.page", map[string]any{"Page": 2, "Total": 7})
	assert.Equal(t, "Page 2/7", got)

	assert.Equal(t, "plain.key", Format(nil, "plain.key", nil))
}

func TestLoadFS_NestedKeysAndMissing(t *testing.T) {
	fsys := fstest.MapFS{
		"en.yaml": {Data: []byte(`en:
  deposit:
    usage: "Usage: /deposit <amount> <method> <name>"
    submitted: &sub "Submitted {{.ID}}"
  withdraw:
    submitted: *sub
`)},
		"de.yaml": {Data: []byte("de:\n  deposit:\n    usage: Benutzung\n")},
	}

	m, err := LoadFS(fsys, ".", "en")
	require.NoError(t, err)

	en := m.Translator("en")
	assert.Equal(t, "Submitted {{.ID}}", en.T("withdraw.submitted"))
	assert.Equal(t, []string{"deposit.submitted", "withdraw.submitted"}, m.Missing("de"))
	assert.Empty(t, m.Missing("en"))
}

func TestLoadFS_RejectsLists(t *testing.T) {
	fsys := fstest.MapFS{"en.yaml": {Data: []byte("en:\n  methods:\n    - Volt\n")}}

	_, err := LoadFS(fsys, ".", "en")
	assert.ErrorContains(t, err, "methods")
}
