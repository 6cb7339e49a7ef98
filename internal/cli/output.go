package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output — форматирование вывода команд: таблица или JSON.
// Данные идут в w, служебные сообщения в errW.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

// NewOutput создаёт Output поверх stdout/stderr.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// Print выводит rows таблицей, а в JSON-режиме — data целиком.
func (o *Output) Print(headers []string, rows [][]string, data any) error {
	if o.jsonMode {
		return o.JSON(data)
	}
	if len(rows) == 0 {
		o.Notice("Nothing to show")
		return nil
	}
	return o.Table(headers, rows)
}

// Table печатает выровненную таблицу с подчёркнутыми заголовками.
func (o *Output) Table(headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	underline := make([]string, len(headers))
	for i, h := range headers {
		underline[i] = strings.Repeat("-", len(h))
	}

	lines := append([][]string{headers, underline}, rows...)
	for _, cols := range lines {
		if _, err := fmt.Fprintln(tw, strings.Join(cols, "\t")); err != nil {
			return fmt.Errorf("write table: %w", err)
		}
	}
	return tw.Flush()
}

// JSON печатает v с отступами.
func (o *Output) JSON(v any) error {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Notice печатает служебное сообщение в errW.
func (o *Output) Notice(format string, args ...any) {
	fmt.Fprintf(o.errW, format+"\n", args...)
}
