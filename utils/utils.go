package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Samtools         string            `yaml:"samtools" envconfig:"SAMTOOLS" default:"samtools"`
	Java             string            `yaml:"java" envconfig:"JAVA" default:"java"`
	PicardJar        string            `yaml:"picard_jar" envconfig:"PICARD_JAR"`
	Threads          int               `yaml:"threads" envconfig:"THREADS" default:"1"`
	LogFile          string            `yaml:"log_file" envconfig:"LOG_FILE"`
	PicardRnaOptions map[string]string `yaml:"picard_rna_options" envconfig:"PICARD_RNA_OPTIONS"`
}

// ReadConfig resolves the tool configuration. Values from a .env file in the
// working directory and BIOPET_* variables come first, then the YAML file at
// configPath (if any) overrides them.
func ReadConfig(configPath string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("loading .env: %w", err)
	}

	if err := envconfig.Process("biopet", &cfg); err != nil {
		return cfg, fmt.Errorf("reading environment: %w", err)
	}

	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", configPath, err)
	}
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	return cfg, nil
}

func RunCmdVerbose(ctx context.Context, name string, args ...string) error {
	slog.Debug("running command", "CMD", name+" "+strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// RunCmdOutput runs name and returns what it wrote to stdout. Stderr is kept
// for the error message.
func RunCmdOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	slog.Debug("running command", "CMD", name+" "+strings.Join(args, " "))
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
