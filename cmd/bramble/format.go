package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/jward/bramble"
)

// CLIDiagnostic is one finding in CLI output.
type CLIDiagnostic struct {
	Path    string `json:"path"`
	Pass    string `json:"pass"`
	Message string `json:"message"`
}

// CLIResult is the full JSON output of a check run.
type CLIResult struct {
	Files       int             `json:"files"`
	Diagnostics []CLIDiagnostic `json:"diagnostics"`
}

// flattenResults converts per-file pass results into the flat diagnostic
// list the output formats use, preserving file order and, within a file,
// syntax before semantic.
func flattenResults(results []bramble.FileDiagnostics) []CLIDiagnostic {
	var diags []CLIDiagnostic
	for _, r := range results {
		for _, msg := range r.Syntax {
			diags = append(diags, CLIDiagnostic{Path: r.Path, Pass: "syntax", Message: msg})
		}
		for _, msg := range r.Semantic {
			diags = append(diags, CLIDiagnostic{Path: r.Path, Pass: "semantic", Message: msg})
		}
	}
	return diags
}

// outputResults prints the diagnostics in the selected format and returns
// the total count.
func outputResults(results []bramble.FileDiagnostics) (int, error) {
	diags := flattenResults(results)

	switch flagFormat {
	case "json":
		out := CLIResult{Files: len(results), Diagnostics: diags}
		if out.Diagnostics == nil {
			out.Diagnostics = []CLIDiagnostic{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return 0, fmt.Errorf("encoding results: %w", err)
		}
	case "text":
		outputResultsText(diags)
	}
	return len(diags), nil
}

var (
	pathColor     = color.New(color.Bold)
	syntaxColor   = color.New(color.FgYellow)
	semanticColor = color.New(color.FgRed)
)

// outputResultsText prints one line per diagnostic, grouped by file.
func outputResultsText(diags []CLIDiagnostic) {
	lastPath := ""
	for _, d := range diags {
		if d.Path != lastPath {
			if lastPath != "" {
				fmt.Println()
			}
			pathColor.Println(d.Path)
			lastPath = d.Path
		}

		tag := syntaxColor
		if d.Pass == "semantic" {
			tag = semanticColor
		}
		fmt.Printf("  %s %s\n", tag.Sprintf("[%s]", d.Pass), d.Message)
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"text", "json"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
