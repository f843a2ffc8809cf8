package discovery

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// DefaultPropertyCommand is the Android property dump tool
const DefaultPropertyCommand = "/system/bin/getprop"

// Source produces the raw discovery lines, in source order.
type Source interface {
	Lines(ctx context.Context) ([]string, error)
}

// CommandSource runs an external command and returns its stdout lines.
type CommandSource struct {
	Path string
	Args []string
}

// NewCommandSource creates a source for the given command. An empty path
// selects DefaultPropertyCommand.
func NewCommandSource(path string, args ...string) *CommandSource {
	if path == "" {
		path = DefaultPropertyCommand
	}
	return &CommandSource{Path: path, Args: args}
}

// Lines spawns the command and collects its output
func (s *CommandSource) Lines(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, s.Path, s.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("failed to run %s: %w (%s)", s.Path, err, msg)
		}
		return nil, fmt.Errorf("failed to run %s: %w", s.Path, err)
	}

	return ReadLines(&stdout)
}

// String describes the source for logs
func (s *CommandSource) String() string {
	return strings.TrimSpace(s.Path + " " + strings.Join(s.Args, " "))
}

// FileSource reads discovery lines from a text file.
type FileSource struct {
	Path string
}

// Lines reads the file
func (s *FileSource) Lines(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open property file: %w", err)
	}
	defer f.Close()
	return ReadLines(f)
}

// String describes the source for logs
func (s *FileSource) String() string {
	return s.Path
}

// StaticSource returns a fixed set of lines.
type StaticSource []string

// Lines returns a copy of the lines
func (s StaticSource) Lines(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

// String describes the source for logs
func (s StaticSource) String() string {
	return fmt.Sprintf("static (%d lines)", len(s))
}

// ReadLines splits r into lines, dropping trailing carriage returns and
// blank lines.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read property lines: %w", err)
	}
	return lines, nil
}
