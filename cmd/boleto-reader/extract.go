package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zombor/boleto-reader/internal/boleto"
	"github.com/zombor/boleto-reader/internal/fields"
)

type printOptions struct {
	json bool
	raw  bool
}

// labels shown for each record key
var labels = map[string]string{
	"Customer": "Cliente",
	"DueDate":  "Vencimento",
	"Amount":   "Valor",
	"TaxId":    "CPF/CNPJ",
}

// CleanPath strips what drag-and-drop into a terminal adds around a path:
// surrounding whitespace, PowerShell's leading "& " and quotes.
func CleanPath(raw string) string {
	p := strings.TrimSpace(raw)
	p = strings.TrimPrefix(p, "& ")
	p = strings.TrimSpace(p)
	p = strings.Trim(p, `"'`)
	return p
}

// runExtract processes each path in turn and returns how many failed.
// A failure is reported on stderr and does not stop the remaining files.
func runExtract(ctx context.Context, extractor boleto.TextExtractor, stdout, stderr io.Writer, paths []string, opts printOptions) int {
	failed := 0
	for _, raw := range paths {
		path := CleanPath(raw)
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			fmt.Fprintf(stderr, "%s: arquivo não encontrado\n", path)
			failed++
			continue
		}

		text, err := extractor.Extract(ctx, path)
		if err != nil {
			fmt.Fprintf(stderr, "%s: erro ao processar o arquivo: %v\n", path, err)
			failed++
			continue
		}

		if err := printRecord(stdout, path, text, fields.Extract(text), opts); err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", path, err)
			failed++
		}
	}
	return failed
}

func printRecord(w io.Writer, path, text string, rec fields.Record, opts printOptions) error {
	if opts.json {
		out := struct {
			File   string        `json:"file"`
			Fields fields.Record `json:"fields"`
			Text   string        `json:"text,omitempty"`
		}{File: path, Fields: rec}
		if opts.raw {
			out.Text = text
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "%s\n", path)
	if opts.raw {
		fmt.Fprintf(w, "\nTexto extraído:\n%s\n\n", text)
	}
	m := rec.Map()
	for _, k := range fields.Keys {
		fmt.Fprintf(w, "- %s: %s\n", labels[k], m[k])
	}
	return nil
}
