package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"none", nil, ""},
		{"long", []string{"--config", "configs/riskd.yaml"}, "configs/riskd.yaml"},
		{"long with equals", []string{"--config=/etc/riskd.yaml"}, "/etc/riskd.yaml"},
		{"short", []string{"-c", "riskd.yaml"}, "riskd.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFlags_unknown(t *testing.T) {
	_, err := parseFlags([]string{"--port", "80"})
	assert.Error(t, err)
}
