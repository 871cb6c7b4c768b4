package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/backmassage/structpipe/internal/config"
)

func TestNew_NoFile(t *testing.T) {
	l, err := New(config.ColorNever, "")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	l.Info("test message")
}

func TestNew_WithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "structpipe.log")
	l, err := New(config.ColorNever, path)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("to file")
	l.QC("volume out of range")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	if !bytes.Contains(b, []byte("INFO")) || !bytes.Contains(b, []byte("to file")) {
		t.Errorf("log file content: %s", string(b))
	}
	if !bytes.Contains(b, []byte("[QC]")) {
		t.Errorf("QC level missing from log file: %s", string(b))
	}
}

func TestNew_CreatesLogDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "nested", "run.log")
	l, err := New(config.ColorNever, path)
	if err != nil {
		t.Fatal(err)
	}
	l.Warn("nested")
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}
