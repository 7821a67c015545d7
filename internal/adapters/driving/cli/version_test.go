package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_PrintsVersion(t *testing.T) {
	buf, err := execute("version")

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "kbengine version")
}
