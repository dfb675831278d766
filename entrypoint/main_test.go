package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"text2phenotype.com/admitnote/logger"
)

func TestRenderFile(t *testing.T) {
	mainLogger := logger.NewLogger("Test Main")
	ppln := loadPipeline(Config{}, &mainLogger)

	require.NoError(t, renderFile(ppln, filepath.Join("..", "resources", "cases", "pneumonia.json")))
}

func TestRenderFileErrors(t *testing.T) {
	mainLogger := logger.NewLogger("Test Main")
	ppln := loadPipeline(Config{}, &mainLogger)

	require.Error(t, renderFile(ppln, filepath.Join(t.TempDir(), "missing.json")))

	broken := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0o600))
	require.Error(t, renderFile(ppln, broken))
}

func TestLoadPipelineFromConfigDir(t *testing.T) {
	mainLogger := logger.NewLogger("Test Main")
	ppln := loadPipeline(Config{ConfigPath: filepath.Join("..", "resources", "configs")}, &mainLogger)
	require.NotNil(t, ppln)
}
