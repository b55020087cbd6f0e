// Package clip copies chat answers to the clipboard.
package clip

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	atotto "github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"golang.org/x/term"
)

// Method is the mechanism that made the text copyable.
type Method string

const (
	MethodNative Method = "native" // OS clipboard via github.com/atotto/clipboard
	MethodOSC52  Method = "osc52"  // terminal clipboard escape sequence
	MethodFile   Method = "file"   // no clipboard reachable; text saved to a temp file
)

// Result reports how Copy delivered the text.
type Result struct {
	Method   Method
	FilePath string // only set when Method == MethodFile
}

// Message is the status line shown after a copy.
func (r Result) Message() string {
	switch r.Method {
	case MethodNative:
		return "Copied to clipboard"
	case MethodOSC52:
		return "Copied to clipboard (terminal)"
	case MethodFile:
		return "Clipboard unavailable, saved to " + r.FilePath
	}
	return ""
}

// Swapped in tests.
var (
	nativeWriteAll = atotto.WriteAll
	osc52WriteAll  = func(text string) error { return writeOSC52(os.Stderr, text) }
	tempDir        = os.TempDir
)

// ErrEmpty is returned when there is nothing to copy.
var ErrEmpty = errors.New("nothing to copy")

// Copy tries the native clipboard, then OSC52, then a temp file.
func Copy(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmpty
	}

	if err := nativeWriteAll(text); err == nil {
		return Result{Method: MethodNative}, nil
	}

	if err := osc52WriteAll(text); err == nil {
		return Result{Method: MethodOSC52}, nil
	}

	path, err := writeTempFile(text)
	if err != nil {
		return Result{}, fmt.Errorf("saving copy: %w", err)
	}
	return Result{Method: MethodFile, FilePath: path}, nil
}

// Terminals drop or block on large OSC52 payloads.
const osc52LimitBytes = 100_000

type fdWriter interface {
	io.Writer
	Fd() uintptr
}

func writeOSC52(w fdWriter, text string) error {
	if !term.IsTerminal(int(w.Fd())) {
		return errors.New("output is not a terminal")
	}
	if len(text) > osc52LimitBytes {
		return fmt.Errorf("text too large for OSC52 (%d bytes > %d)", len(text), osc52LimitBytes)
	}

	seq := osc52.New(text).Limit(osc52LimitBytes)
	if os.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	} else if os.Getenv("STY") != "" {
		seq = seq.Screen()
	}

	// stderr, so the bubbletea renderer on stdout is untouched.
	_, err := seq.WriteTo(w)
	return err
}

func writeTempFile(text string) (path string, err error) {
	f, err := os.CreateTemp(tempDir(), "travelbuddy-answer-*.md")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	if _, err = f.WriteString(text); err != nil {
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
