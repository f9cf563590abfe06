package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"todo", "in_progress", "in_review", "done"} {
		s, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, Status(raw), s)
	}

	for _, raw := range []string{"", "archived", "TODO", "in progress"} {
		_, err := ParseStatus(raw)
		assert.Error(t, err, "status %q", raw)
	}
}
