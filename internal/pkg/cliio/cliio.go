// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package cliio provides output formatting for CLI commands (table, CSV, JSON).
package cliio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const (
	// FormatTable is the default table output format.
	FormatTable Format = "table"
	// FormatCSV is the CSV output format.
	FormatCSV Format = "csv"
	// FormatJSON is the JSON output format.
	FormatJSON Format = "json"
)

// Format represents the output format for CLI commands.
type Format string

// ParseFormat parses a string into a Format, returning an error for unknown formats.
func ParseFormat(s string) (Format, error) {
	switch format := Format(strings.ToLower(strings.TrimSpace(s))); format {
	case FormatTable, FormatCSV, FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unknown format %q, must be one of: table, csv, json", s)
	}
}

// Output is command output that can be written in any Format.
//
// Table and CSV output use Headers and Rows. JSON output writes one line per
// element of Objects.
type Output[O any] struct {
	// Headers are the column headers.
	Headers []string
	// Rows are the data rows, each with one value per header.
	Rows [][]string
	// Objects are the values written as JSON lines.
	Objects []O
	// Notes are lines written below the table. They are omitted from CSV and JSON output.
	Notes []string
}

// Write writes output to writer in the given format.
func Write[O any](writer io.Writer, format Format, output Output[O]) error {
	switch format {
	case FormatTable:
		if err := WriteTable(writer, output.Headers, output.Rows); err != nil {
			return err
		}
		for _, note := range output.Notes {
			if _, err := fmt.Fprintln(writer, note); err != nil {
				return err
			}
		}
		return nil
	case FormatCSV:
		records := make([][]string, 0, len(output.Rows)+1)
		records = append(records, output.Headers)
		records = append(records, output.Rows...)
		return WriteCSVRecords(writer, records)
	case FormatJSON:
		return WriteJSON(writer, output.Objects...)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// WriteTable writes tabular data to the writer using tabwriter for aligned columns.
func WriteTable(writer io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	// Write header row.
	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteCSVRecords writes CSV records to the writer.
func WriteCSVRecords(writer io.Writer, records [][]string) error {
	csvWriter := csv.NewWriter(writer)
	// WriteAll flushes and reports any write error.
	return csvWriter.WriteAll(records)
}

// WriteJSON writes objects as JSON with newlines between each object.
func WriteJSON[O any](writer io.Writer, objects ...O) error {
	encoder := json.NewEncoder(writer)
	for _, object := range objects {
		if err := encoder.Encode(object); err != nil {
			return err
		}
	}
	return nil
}
