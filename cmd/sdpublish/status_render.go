package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const ansiReset = "\x1b[0m"

// statusStyles is indexed by statusKind.
var statusStyles = [...]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const labelColumn = 20

var titleCaser = cases.Title(language.Und)

func (k statusKind) style() (label, color string) {
	if k < 0 || int(k) >= len(statusStyles) {
		k = statusInfo
	}
	s := statusStyles[k]
	return s.label, s.color
}

// renderStatusLine formats "  Label:   [KIND] message", coloured as a whole
// when colorize is set.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	tag, color := kind.style()
	var b strings.Builder
	fmt.Fprintf(&b, "  %-*s [%s]", labelColumn, label+":", tag)
	if message != "" {
		b.WriteByte(' ')
		b.WriteString(message)
	}
	return paint(b.String(), color, colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	_, color := statusInfo.style()
	heading := "== " + strings.TrimSpace(title) + " =="
	return []string{
		paint(heading, color, colorize),
		paint(strings.Repeat("-", len(heading)), color, colorize),
	}
}

func paint(text, color string, enabled bool) string {
	if !enabled || color == "" {
		return text
	}
	return color + text + ansiReset
}

// humanLabel turns identifiers such as "poll_timeout" into "Poll Timeout".
func humanLabel(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return "-"
	}
	return titleCaser.String(value)
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
