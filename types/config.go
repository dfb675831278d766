package types

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
	"text2phenotype.com/admitnote/logger"
)

// Output kinds a render configuration can produce.
const (
	JustificationOutput  = "justification"
	RevisedHPIOutput     = "revised_hpi"
	CompactSummaryOutput = "compact_summary"
	SafeOutput           = "safe_output"
)

var ErrUnknownOutput = errors.New("unknown output kind")

type Configuration struct {
	Name     string `yaml:"-" json:"name"`
	FilePath string `yaml:"-" json:"file_path"`
	Output   string `yaml:"output" json:"output"`
	// SafeFallback renders the safe template instead of Output when the
	// case carries no determination results.
	SafeFallback bool `yaml:"safe_fallback" json:"safe_fallback"`
	// CompactFallback renders the compact summary for revised HPI requests
	// that have results but no extracted features.
	CompactFallback bool `yaml:"compact_fallback" json:"compact_fallback"`
}

func (cfg Configuration) Validate() error {
	switch cfg.Output {
	case JustificationOutput, RevisedHPIOutput, CompactSummaryOutput, SafeOutput:
		return nil
	}
	return fmt.Errorf("%w %q in configuration %s", ErrUnknownOutput, cfg.Output, cfg.Name)
}

// DefaultConfigurations is used when no configuration directory is given.
func DefaultConfigurations() []Configuration {
	return []Configuration{
		{Name: "justification", Output: JustificationOutput},
		{Name: "revised_hpi", Output: RevisedHPIOutput, SafeFallback: true, CompactFallback: true},
		{Name: "compact_summary", Output: CompactSummaryOutput},
	}
}

// LoadConfigurations reads every *.yaml file in dirPath. Files that fail to
// parse or validate are logged and skipped. The result is sorted by name.
func LoadConfigurations(dirPath string) ([]Configuration, error) {
	configLogger := logger.NewLogger("LoadConfigurations")

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	configChan := make(chan Configuration, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		wg.Add(1)
		go func(fileName string) {
			defer wg.Done()
			cfg := Configuration{
				Name:     strings.TrimSuffix(fileName, ".yaml"),
				FilePath: path.Join(dirPath, fileName),
			}
			buf, err := os.ReadFile(cfg.FilePath)
			if err != nil {
				configLogger.Err(err).Str("file_path", cfg.FilePath).Msg("Could not read configuration")
				return
			}
			if err := yaml.Unmarshal(buf, &cfg); err != nil {
				configLogger.Err(err).Str("file_path", cfg.FilePath).Msg("Could not parse configuration")
				return
			}
			if err := cfg.Validate(); err != nil {
				configLogger.Err(err).Str("file_path", cfg.FilePath).Msg("Invalid configuration")
				return
			}
			configChan <- cfg
		}(entry.Name())
	}

	go func() {
		wg.Wait()
		close(configChan)
	}()

	configs := make([]Configuration, 0, len(entries))
	for cfg := range configChan {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs, nil
}
