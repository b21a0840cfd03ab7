package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/fiofix/pkg/pipeline/schema"
)

func TestNormalizeMode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want schema.ChangeMode
	}{
		{name: "json default", in: "", want: schema.ModeChangesInJSON},
		{name: "json explicit", in: "changes_in_json", want: schema.ModeChangesInJSON},
		{name: "direct", in: "direct_change", want: schema.ModeDirectChange},
		{name: "direct short upper", in: " Direct ", want: schema.ModeDirectChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := schema.NormalizeMode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown mode errors", func(t *testing.T) {
		_, err := schema.NormalizeMode("changes_in_log")
		require.Error(t, err)
	})
}
