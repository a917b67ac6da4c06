package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/meenmo/shortrate/config"
	"github.com/meenmo/shortrate/lattice"
	"github.com/meenmo/shortrate/model"
)

func main() {
	inputPath := flag.String("input", "", "JSON input path (reads stdin if omitted)")
	configPath := flag.String("config", "", "calibration config file (YAML, JSON or TOML)")
	verbose := flag.Bool("v", false, "Log every fitted slice to stderr")
	help := flag.Bool("h", false, "Show help")
	flag.BoolVar(help, "help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Fprintln(os.Stderr, "Usage: shortratetree [-config <path>] [-v] -input <path>")
		fmt.Fprintln(os.Stderr, "Build short-rate trinomial trees fitted to a zero curve and price discount and coupon bonds on them.")
		return
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
	lattice.SetLogger(logger)
	model.SetLogger(logger)

	cfg, err := config.Load(strings.TrimSpace(*configPath))
	if err != nil {
		exitError(fmt.Sprintf("load config: %v", err))
	}

	path := strings.TrimSpace(*inputPath)
	if path == "" {
		if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			fmt.Fprintln(os.Stderr, "Usage: shortratetree -input <path>")
			os.Exit(2)
		}
	}

	raw, err := readInput(path)
	if err != nil {
		exitError(fmt.Sprintf("read input: %v", err))
	}

	inputs, isArray, err := parseInputs(raw)
	if err != nil {
		exitError(fmt.Sprintf("parse JSON: %v", err))
	}

	ctx := context.Background()
	v := validator.New()
	hadError := false
	outputs := make([]treeOutput, 0, len(inputs))
	for _, in := range inputs {
		start := time.Now()
		out, err := process(ctx, v, cfg, in)
		if err != nil {
			hadError = true
			logger.Error().Str("task_id", in.TaskID).Err(err).Msg("request failed")
			outputs = append(outputs, treeOutput{TaskID: in.TaskID, Error: err.Error()})
			continue
		}
		logger.Info().Str("task_id", in.TaskID).Str("model", out.Model).Int("steps", out.Steps).
			Dur("elapsed", time.Since(start)).Msg("tree built")
		outputs = append(outputs, *out)
	}

	if isArray {
		b, _ := json.Marshal(outputs)
		fmt.Println(string(b))
	} else {
		b, _ := json.Marshal(outputs[0])
		fmt.Println(string(b))
	}

	if hadError {
		os.Exit(1)
	}
}

func readInput(path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(os.Stdin)
}

func parseInputs(raw []byte) ([]treeInput, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, fmt.Errorf("empty input")
	}
	if trimmed[0] == '[' {
		var inputs []treeInput
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, true, err
		}
		if len(inputs) == 0 {
			return nil, true, fmt.Errorf("empty input array")
		}
		return inputs, true, nil
	}
	var input treeInput
	if err := json.Unmarshal(trimmed, &input); err != nil {
		return nil, false, err
	}
	return []treeInput{input}, false, nil
}

func exitError(msg string) {
	b, _ := json.Marshal(treeOutput{Error: msg})
	fmt.Println(string(b))
	os.Exit(1)
}
