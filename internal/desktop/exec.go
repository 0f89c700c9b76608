package desktop

import (
	"bytes"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// StripFieldCodes removes desktop-entry field codes (%f, %U, %i, ...) from an
// Exec value while keeping every other word exactly as written, quoting
// included. "%%" is unescaped to a literal percent sign.
func StripFieldCodes(exec string) string {
	file, err := syntax.NewParser().Parse(strings.NewReader(exec), "")
	if err != nil || len(file.Stmts) != 1 {
		return stripFieldCodesFallback(exec)
	}
	call, ok := file.Stmts[0].Cmd.(*syntax.CallExpr)
	if !ok {
		return stripFieldCodesFallback(exec)
	}

	printer := syntax.NewPrinter()
	words := make([]string, 0, len(call.Assigns)+len(call.Args))
	for _, assign := range call.Assigns {
		var buf bytes.Buffer
		if err := printer.Print(&buf, assign); err != nil {
			return stripFieldCodesFallback(exec)
		}
		words = append(words, buf.String())
	}
	for _, word := range call.Args {
		var buf bytes.Buffer
		if err := printer.Print(&buf, word); err != nil {
			return stripFieldCodesFallback(exec)
		}
		w := buf.String()
		if isFieldCode(w) {
			continue
		}
		words = append(words, unescapePercent(w))
	}
	return strings.Join(words, " ")
}

func stripFieldCodesFallback(exec string) string {
	fields := strings.Fields(exec)
	kept := fields[:0]
	for _, f := range fields {
		if isFieldCode(f) {
			continue
		}
		kept = append(kept, unescapePercent(f))
	}
	return strings.Join(kept, " ")
}

func isFieldCode(word string) bool {
	return len(word) == 2 && word[0] == '%' && word[1] != '%'
}

func unescapePercent(word string) string {
	return strings.ReplaceAll(word, "%%", "%")
}
