// Package cli contains an apex/log handler for the command line.
//
// Besides regular entries, the handler knows how to print entries
// carrying a "type" field: "table" prints the other fields inside a
// box and "section_title" prints the "title" field inside a box.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
)

// Default handler outputting to stderr.
var Default = New(os.Stderr)

var bold = color.New(color.Bold)

// Colors mapping.
var Colors = [...]*color.Color{
	log.DebugLevel: color.New(color.FgWhite),
	log.InfoLevel:  color.New(color.FgBlue),
	log.WarnLevel:  color.New(color.FgYellow),
	log.ErrorLevel: color.New(color.FgRed),
	log.FatalLevel: color.New(color.FgRed),
}

// Strings mapping.
var Strings = [...]string{
	log.DebugLevel: "•",
	log.InfoLevel:  "•",
	log.WarnLevel:  "•",
	log.ErrorLevel: "⨯",
	log.FatalLevel: "⨯",
}

// Handler implementation.
type Handler struct {
	mu      sync.Mutex
	Writer  io.Writer
	Padding int
}

var _ log.Handler = &Handler{}

// New handler.
func New(w io.Writer) *Handler {
	if f, ok := w.(*os.File); ok {
		return &Handler{
			Writer:  colorable.NewColorable(f),
			Padding: 3,
		}
	}
	return &Handler{
		Writer:  w,
		Padding: 3,
	}
}

// box writes lines inside a box of the given width.
func box(w io.Writer, lines []string, width int) {
	fmt.Fprint(w, "┏"+strings.Repeat("━", width+2)+"┓\n")
	for _, line := range lines {
		fmt.Fprintf(w, "┃ %s ┃\n", RightPad(line, width))
	}
	fmt.Fprint(w, "┗"+strings.Repeat("━", width+2)+"┛\n")
}

func logSectionTitle(w io.Writer, f log.Fields) error {
	title, _ := f.Get("title").(string)
	width := 24
	if n := EscapeAwareRuneCountInString(title); n > width {
		width = n
	}
	box(w, []string{title}, width)
	return nil
}

func logTable(w io.Writer, f log.Fields) error {
	color := color.New(color.FgBlue)
	names := f.Names()
	sort.Strings(names)
	var lines []string
	width := 0
	for _, name := range names {
		if name == "type" {
			continue
		}
		line := fmt.Sprintf("%s: %v", color.Sprint(name), f.Get(name))
		if n := EscapeAwareRuneCountInString(line); n > width {
			width = n
		}
		lines = append(lines, line)
	}
	box(w, lines, width)
	return nil
}

// TypedLog is used for handling special "typed" logs to the CLI
func (h *Handler) TypedLog(t string, e *log.Entry) error {
	switch t {
	case "table":
		return logTable(h.Writer, e.Fields)
	case "section_title":
		return logSectionTitle(h.Writer, e.Fields)
	default:
		return h.DefaultLog(e)
	}
}

// DefaultLog is the default way of printing out logs
func (h *Handler) DefaultLog(e *log.Entry) error {
	color := Colors[e.Level]
	level := Strings[e.Level]
	names := e.Fields.Names()
	s := color.Sprintf("%s %-25s", bold.Sprintf("%*s", h.Padding+1, level), e.Message)
	for _, name := range names {
		if name == "source" {
			continue
		}
		s += fmt.Sprintf(" %s=%v", color.Sprint(name), e.Fields.Get(name))
	}
	fmt.Fprintln(h.Writer, s)
	return nil
}

// HandleLog implements log.Handler.
func (h *Handler) HandleLog(e *log.Entry) error {
	defer h.mu.Unlock()
	h.mu.Lock()
	if t, isTyped := e.Fields["type"].(string); isTyped {
		return h.TypedLog(t, e)
	}
	return h.DefaultLog(e)
}
