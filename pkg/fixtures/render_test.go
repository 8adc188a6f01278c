package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFixtures_Render(t *testing.T) {
	t.Parallel()

	out, err := Render(`{{range seq 1 3}}{{.}} {{rtt . 0}}|{{end}}`, nil)
	require.NoError(t, err)
	require.Equal(t, "1 1.500|2 3.000|3 4.500|", out)

	out, err = Render(`{{range seq 3 1}}x{{end}}`, nil)
	require.NoError(t, err)
	require.Empty(t, out)

	_, err = Render(`{{range}`, nil)
	require.ErrorContains(t, err, "failed to parse fixture")

	_, err = Render(`{{.Hops}}`, map[string]any{})
	require.ErrorContains(t, err, "failed to render fixture")

	_, err = Render(`{{seq "a" 1}}`, nil)
	require.ErrorContains(t, err, "failed to render fixture")
}

func TestFixtures_RenderLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("{{range seq 1 .N}}line {{.}}\n{{end}}"), 0o644))

	lines, err := RenderLines(path, map[string]int{"N": 2})
	require.NoError(t, err)
	require.Equal(t, []string{"line 1", "line 2"}, lines)

	_, err = RenderLines(filepath.Join(t.TempDir(), "missing"), nil)
	require.Error(t, err)
}
