package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbtranscode/internal/model"
)

const geoConfig = `
error_handler:
  name: geo
  level: error
identities:
  - table: COUNTRY
    query: SELECT name, code FROM COUNTRY
    irrelevant: [updated]
  - table: STATE
    type: sub-nk-pk-query
    owners: [COUNTRY]
    query: SELECT code, id FROM STATE WHERE country = ?
  - table: CITY
    type: Unique-Key
    nk: [name, state_id]
  - table: LOG
    type: none
`

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(geoConfig))
	require.NoError(t, err)
	assert.Equal(t, "1", c.Version)
	require.Len(t, c.Identities, 4)
	assert.Equal(t, KindNkPkQuery, c.Identities[0].Type)
	assert.Equal(t, KindUniqueKey, c.Identities[2].Type)

	p, err := c.Provider(nil)
	require.NoError(t, err)
	assert.Equal(t, "geo", p.ErrorHandler().Name())

	kinds := map[string]string{}
	for _, m := range p.Identities() {
		kinds[m.Name()] = m.Kind()
	}
	assert.Equal(t, map[string]string{
		"COUNTRY": KindNkPkQuery,
		"STATE":   KindSubNkPkQuery,
		"CITY":    KindUniqueKey,
		"LOG":     KindNone,
	}, kinds)

	country, _ := p.Identity("country")
	assert.Equal(t, []string{"updated"}, country.IrrelevantColumns())

	db := geoDatabase(t)
	assert.Equal(t, []string{"COUNTRY", "STATE", "CITY", "LOG"}, scanOrderNames(t, p, db))
}

func TestConfigDefaults(t *testing.T) {
	c, err := ParseConfig([]byte("identities: []"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHandlerName, c.ErrorHandler.Name)
	assert.Equal(t, "warn", c.ErrorHandler.Level)

	data, err := c.Marshal()
	require.NoError(t, err)
	again, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown type", yaml: "identities: [{table: A, type: magic}]"},
		{name: "missing table", yaml: "identities: [{query: x}]"},
		{name: "query without text", yaml: "identities: [{table: A, type: nk-pk-query}]"},
		{name: "sub query without owner", yaml: "identities: [{table: A, type: sub-nk-pk-query, query: x}]"},
		{name: "unique key without components", yaml: "identities: [{table: A, type: unique-key}]"},
		{name: "bad level", yaml: "error_handler: {level: loud}\nidentities: []"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseConfig([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = c.Provider(nil)
			assert.ErrorIs(t, err, model.ErrInvalidArgument)
		})
	}

	_, err := ParseConfig([]byte("identities: {"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(geoConfig), 0o644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, c.Identities, 4)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
