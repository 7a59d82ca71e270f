package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPrinter(t *testing.T) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out, errOut bytes.Buffer
	return New(&out, &errOut), &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		p, _, errOut := setupPrinter(t)
		err := p.Error("Test Error", "This is a test error", []string{})
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "This is a test error")
	})

	t.Run("single suggestion is printed as-is", func(t *testing.T) {
		p, _, errOut := setupPrinter(t)
		err := p.Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "\nTry this fix\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		p, _, errOut := setupPrinter(t)
		_ = p.Error("Test Error", "Explanation", []string{"First option", "Second option"})
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
	})
}

func TestErrorWithContext(t *testing.T) {
	p, out, errOut := setupPrinter(t)
	ctx := map[string]string{
		"Run":   "run-1",
		"Input": "Approval",
	}

	err := p.ErrorWithContext("Test Error", "Explanation", ctx, nil)
	require.Equal(t, "Test Error", err.Error())
	assert.Contains(t, errOut.String(), "  Input: Approval\n  Run: run-1\n")
	assert.Empty(t, out.String())
}

func TestMessages(t *testing.T) {
	p, out, errOut := setupPrinter(t)

	p.Success("saved %s\n", "schema")
	p.Info("plain\n")
	p.Step("step\n")
	p.Warning("careful\n")

	assert.Equal(t, "✓ saved schema\nplain\n→ step\n", out.String())
	assert.Equal(t, "⚠️  careful\n", errOut.String())
}
