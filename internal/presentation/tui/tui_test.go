package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/semop/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer(t *testing.T) {
	render, err := tui.NewRenderer("notty", 80)
	require.NoError(t, err)

	out, err := render("# Audit trail\n\n1. CompletionBackend\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Audit trail")
	assert.Contains(t, out, "CompletionBackend")
}

func TestPrintBanner(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "|___/")
	assert.Contains(t, buf.String(), "version 1.2.3")
	assert.NotContains(t, buf.String(), "\x1b[")
}
