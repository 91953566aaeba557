package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/debemdeboas/microsites/internal/config"
)

const header = "# Microsites configuration example\n# Copy this file to config.yaml and customize as needed.\n# auth.keys maps a principal to its Ed25519 public key (see cmd/sign).\n\n"

// exampleConfig renders the default configuration as commented YAML.
func exampleConfig() ([]byte, error) {
	yamlData, err := yaml.Marshal(config.Default())
	if err != nil {
		return nil, err
	}
	return append([]byte(header), yamlData...), nil
}

func writeConfig(w io.Writer, outputFile string) error {
	output, err := exampleConfig()
	if err != nil {
		return fmt.Errorf("generating YAML: %w", err)
	}
	if outputFile == "-" {
		_, err = w.Write(output)
		return err
	}
	if err := os.WriteFile(outputFile, output, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	fmt.Fprintf(w, "Generated example config: %s\n", outputFile)
	return nil
}

func main() {
	outputFile := "config.example.yaml"
	if len(os.Args) > 1 {
		outputFile = os.Args[1]
	}
	if err := writeConfig(os.Stdout, outputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
