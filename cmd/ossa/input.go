package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ossa/internal/sil"
)

// readModule loads a module from path ("-" reads stdin). msgpack snapshots
// are recognised by their first byte, everything else is parsed as text.
func readModule(path string, stdin io.Reader) (*sil.Module, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	br := bufio.NewReader(r)
	var (
		m   *sil.Module
		err error
	)
	if isMsgpack(br) {
		m, err = sil.DecodeModule(br)
	} else {
		m, err = sil.ParseModule(br)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", displayName(path), err)
	}
	return m, nil
}

// isMsgpack peeks at the first byte: text modules start with ASCII, the
// snapshot with a msgpack map header.
func isMsgpack(br *bufio.Reader) bool {
	head, err := br.Peek(1)
	if err != nil || len(head) == 0 {
		return false
	}
	return head[0] >= 0x80
}

// writeModule writes m to path, as a msgpack snapshot when the extension
// asks for one.
func writeModule(path string, m *sil.Module) error {
	var buf bytes.Buffer
	var err error
	if isMsgpackPath(path) {
		err = sil.EncodeModule(&buf, m)
	} else {
		err = sil.FprintModule(&buf, m, sil.PrintOptions{})
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func isMsgpackPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".silpack":
		return true
	default:
		return false
	}
}

func displayName(path string) string {
	if path == "-" {
		return "<stdin>"
	}
	return path
}
