package facts

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	all := c.All()
	require.Len(t, all, 5)
	assert.Equal(t, "A single tree can absorb 48 pounds of CO2 per year!", all[1].Title)
	for _, f := range all {
		assert.NotEmpty(t, f.Description)
	}
}

func TestRandom_DeterministicWithSource(t *testing.T) {
	a := Default().WithSource(rand.NewSource(42))
	b := Default().WithSource(rand.NewSource(42))

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Random(), b.Random())
	}
}

func TestRandom_AlwaysFromCatalog(t *testing.T) {
	c := Default()
	known := make(map[string]bool)
	for _, f := range c.All() {
		known[f.Title] = true
	}
	for i := 0; i < 50; i++ {
		assert.True(t, known[c.Random().Title])
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "single fact", input: "facts:\n  - title: Bikes\n    description: Ride more\n", want: 1},
		{name: "empty list", input: "facts: []\n", wantErr: true},
		{name: "missing title", input: "facts:\n  - description: nothing\n", wantErr: true},
		{name: "invalid yaml", input: "facts: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, c.All(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.All(), 5)

	path := filepath.Join(t.TempDir(), "facts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("facts:\n  - title: Compost\n    description: Feed the soil\n"), 0o600))

	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Compost", c.Random().Title)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
