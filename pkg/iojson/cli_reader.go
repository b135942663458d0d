package iojson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tailscale/hujson"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// FileReader decodes a command's JSON input from a file or stdin. Comments
// and trailing commas are accepted.
type FileReader[T any] struct {
	fileFlagValue string

	// Stdin overrides os.Stdin.
	Stdin io.Reader
}

func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to JSON file (reads from stdin if not provided, - for stdin)",
		Destination: &fr.fileFlagValue,
	}
}

func (fr *FileReader[T]) Read() (T, error) {
	var input T

	var reader io.Reader
	switch {
	case fr.fileFlagValue != "" && fr.fileFlagValue != "-":
		f, err := os.Open(fr.fileFlagValue)
		if err != nil {
			return input, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		reader = f
	case fr.Stdin != nil:
		reader = fr.Stdin
	default:
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return input, fmt.Errorf("no input provided (stdin is a terminal); use -f flag or pipe JSON input")
		}
		reader = os.Stdin
	}

	return Decode[T](reader)
}

// Decode reads a JSON or JSONC document from r into T. Unknown fields are
// rejected.
func Decode[T any](r io.Reader) (T, error) {
	var out T

	raw, err := io.ReadAll(r)
	if err != nil {
		return out, fmt.Errorf("read input: %w", err)
	}

	std, err := hujson.Standardize(raw)
	if err != nil {
		return out, fmt.Errorf("decode JSON: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(std))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("decode JSON: %w", err)
	}
	return out, nil
}
