package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/openctemio/ossreview/pkg/sarif"
)

const (
	outputText  = "text"
	outputJSON  = "json"
	outputYAML  = "yaml"
	outputSARIF = "sarif"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// printReport writes the report in the selected format. Text output uses the
// rendered report; the structured formats use the report itself.
func printReport(w io.Writer, format, text string, report any, toSARIF func() *sarif.Log) error {
	switch format {
	case outputSARIF:
		return toSARIF().Write(w)
	case outputJSON:
		return printJSON(w, report)
	case outputYAML:
		return printYAML(w, report)
	default:
		_, err := io.WriteString(w, text)
		return err
	}
}

// verdict maps a completed audit to the command result.
func verdict(ok bool, opts *globalOptions) error {
	if ok || opts.NoFail {
		return nil
	}
	return ErrAuditFailed
}
