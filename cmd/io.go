package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// readInput reads a file, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, eris.Wrap(err, "read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// writeOutput writes to path, or to stdout when path is empty.
func writeOutput(path string, stdout io.Writer, s string) error {
	if path == "" {
		_, err := io.WriteString(stdout, s)
		return eris.Wrap(err, "write output")
	}
	if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}
