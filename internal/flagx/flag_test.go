package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "taxi.json", "-d", "ledger.db"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-c", "taxi.json"},
		},
		{
			name:    "equals form",
			args:    []string{"-config=alt.json", "-d", "ledger.db"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=alt.json"},
		},
		{
			name:    "unknown flags and positionals ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "dangling flag kept",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-c", "-config=alt.json"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-c", "-config=alt.json"},
		},
		{
			name:    "several allowed flags keep order",
			args:    []string{"-r", "postgres://x", "-c", "conf.json", "-tz", "UTC"},
			allowed: []string{"-c", "-r"},
			want:    []string{"-r", "postgres://x", "-c", "conf.json"},
		},
		{
			name:    "empty",
			args:    nil,
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/short.json", ConfigPath([]string{"-c", "/etc/short.json"}))
	assert.Equal(t, "/etc/long.json", ConfigPath([]string{"-d", "x.db", "-config", "/etc/long.json"}))
	assert.Equal(t, "/etc/eq.json", ConfigPath([]string{"--config=/etc/eq.json"}))
	assert.Equal(t, "/etc/2.json", ConfigPath([]string{"-c", "/etc/1.json", "-config", "/etc/2.json"}))
	assert.Empty(t, ConfigPath([]string{"-x", "1"}))
}

func TestJsonConfigFlags_ReadsProcessArgs(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"taxiledger", "-c", "/path/conf.json"}
	assert.Equal(t, "/path/conf.json", JsonConfigFlags())
}
