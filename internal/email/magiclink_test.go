package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMagicLink(t *testing.T) {
	subject, html, text, err := BuildMagicLink("Demo App", "https://hub.local/access/verify?token=abc", 15*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "Tu acceso a Demo App", subject)
	assert.Contains(t, html, "https://hub.local/access/verify?token=abc")
	assert.Contains(t, html, "Demo App")
	assert.Contains(t, html, "15 minutos")
	assert.Contains(t, text, "https://hub.local/access/verify?token=abc")
	assert.Contains(t, text, "15 minutos")
}

func TestBuildMagicLink_EscapesAppName(t *testing.T) {
	_, html, _, err := BuildMagicLink(`<script>x</script>`, "https://hub.local/x", time.Hour)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}
