package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingMigrations(t *testing.T) {
	assert.Len(t, pending(0), len(migrations))
	assert.Empty(t, pending(migrations[len(migrations)-1].version))

	for i := 1; i < len(migrations); i++ {
		assert.Greater(t, migrations[i].version, migrations[i-1].version)
	}
}

func TestMigrationScriptsEmbedded(t *testing.T) {
	for _, m := range migrations {
		body, err := schemaFS.ReadFile(m.script)
		require.NoError(t, err, m.script)
		assert.Contains(t, string(body), "alttexta_meta")
	}
}
