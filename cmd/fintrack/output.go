package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"fintrack/internal/core"
)

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func (a *app) paint(code, s string) string {
	if !a.color {
		return s
	}
	return code + s + ansiReset
}

// money colors negative amounts red and, when flow is known, expenses red and income green.
func (a *app) money(v float64, flow core.Flow) string {
	s := core.FormatMoney(v)
	switch {
	case v < 0, flow == core.Expense:
		return a.paint(ansiRed, s)
	case flow == core.Income:
		return a.paint(ansiGreen, s)
	}
	return s
}

func (a *app) heading(w io.Writer, cols ...string) {
	for i, c := range cols {
		cols[i] = a.paint(ansiBold, c)
	}
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

// truncate shortens s to n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 1 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// descriptionWidth leaves room for the other list columns on the current terminal.
func (a *app) descriptionWidth() int {
	const otherColumns = 60
	return max(a.width-otherColumns, 16)
}
