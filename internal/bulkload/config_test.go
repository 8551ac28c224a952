package bulkload_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/bulkwrite-go/internal/bulkload"
)

func Test_ConfigFromViper(t *testing.T) {
	// setup
	v := viper.New()
	v.Set(bulkload.KeyDriver, bulkload.DriverSQLX)
	v.Set(bulkload.KeyDSN, "postgres://localhost/db")
	v.Set(bulkload.KeyType, "Person")
	v.Set(bulkload.KeyParallelism, 8)
	v.Set(bulkload.KeyCommitEvery, "500")
	v.Set(bulkload.KeyWAL, "false")
	v.Set(bulkload.KeyRate, 2.5)

	// act
	cfg, err := bulkload.ConfigFromViper(v)

	// assert
	require.NoError(t, err)
	assert.Equal(t, bulkload.DriverSQLX, cfg.Driver)
	assert.Equal(t, 8, cfg.Parallelism)
	assert.Equal(t, 500, cfg.CommitEvery)
	assert.False(t, cfg.UseWAL)
	assert.InDelta(t, 2.5, cfg.Rate, 0.001)
	assert.Len(t, cfg.ExecutorOptions(), 4)
}

func Test_Config_Validate(t *testing.T) {
	valid := bulkload.Config{Driver: bulkload.DriverPGX, DSN: "postgres://localhost/db", RecordType: "Person"}

	testCases := []struct {
		name   string
		modify func(*bulkload.Config)
		ok     bool
	}{
		{name: "valid", modify: func(*bulkload.Config) {}, ok: true},
		{name: "memory needs no dsn", modify: func(c *bulkload.Config) { c.Driver, c.DSN = bulkload.DriverMemory, "" }, ok: true},
		{name: "unknown driver", modify: func(c *bulkload.Config) { c.Driver = "mysql" }},
		{name: "missing dsn", modify: func(c *bulkload.Config) { c.DSN = "" }},
		{name: "empty type", modify: func(c *bulkload.Config) { c.RecordType = "" }},
		{name: "negative rate", modify: func(c *bulkload.Config) { c.Rate = -1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			cfg := valid
			tc.modify(&cfg)

			// act
			err := cfg.Validate()

			// assert
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, bulkload.ErrInvalidConfig)
		})
	}
}

func Test_Config_LoadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(personSchema), 0o600))

	schema, err := bulkload.Config{SchemaFile: path}.LoadSchema()
	require.NoError(t, err)
	assert.Equal(t, personSchema, schema)

	schema, err = bulkload.Config{}.LoadSchema()
	require.NoError(t, err)
	assert.Empty(t, schema)

	_, err = bulkload.Config{SchemaFile: filepath.Join(t.TempDir(), "missing.json")}.LoadSchema()
	assert.Error(t, err)
}
