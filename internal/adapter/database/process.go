package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/caminhar/backupctl/internal/domain"
)

const (
	maxCapturedOutput = 64 * 1024
	// waitDelay bounds how long Wait blocks on pipes held open by
	// grandchildren after the context kills the direct child.
	waitDelay = 5 * time.Second
)

// command is an executable plus argv. It is never passed through a shell.
type command struct {
	bin  string
	args []string
	env  []string
}

func (c command) build(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.bin, c.args...)
	cmd.Env = append(os.Environ(), c.env...)
	cmd.WaitDelay = waitDelay
	return cmd
}

// dumpTo runs c, compresses its stdout into a temporary file next to
// destPath and renames it into place only after c exits successfully.
// On failure nothing is left under destPath.
func dumpTo(ctx context.Context, c command, comp domain.Compressor, destPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*.partial")
	if err != nil {
		return &domain.DumpError{Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	gz, err := comp.Compress(tmp)
	if err != nil {
		return &domain.DumpError{Err: err}
	}

	stderr := &tailBuffer{max: maxCapturedOutput}
	cmd := c.build(ctx)
	cmd.Stdout = gz
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		_ = gz.Close()
		return &domain.DumpError{Stderr: stderr.String(), Err: processError(ctx, c.bin, err)}
	}

	if err := gz.Close(); err != nil {
		return &domain.DumpError{Stderr: stderr.String(), Err: fmt.Errorf("finish compression: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		return &domain.DumpError{Err: fmt.Errorf("sync %s: %w", tmpPath, err)}
	}
	if err := tmp.Close(); err != nil {
		return &domain.DumpError{Err: fmt.Errorf("close %s: %w", tmpPath, err)}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return &domain.DumpError{Err: fmt.Errorf("rename into place: %w", err)}
	}

	committed = true
	return nil
}

// loadFrom decompresses sourcePath into the stdin of c.
func loadFrom(ctx context.Context, c command, comp domain.Compressor, sourcePath string) error {
	file, err := os.Open(sourcePath)
	if err != nil {
		return &domain.LoadError{Err: fmt.Errorf("open artifact: %w", err)}
	}
	defer file.Close()

	reader, err := comp.Decompress(file)
	if err != nil {
		return &domain.LoadError{Err: err}
	}
	defer reader.Close()

	output := &tailBuffer{max: maxCapturedOutput}
	cmd := c.build(ctx)
	cmd.Stdin = reader
	cmd.Stdout = output
	cmd.Stderr = output

	if err := cmd.Run(); err != nil {
		return &domain.LoadError{Stderr: output.String(), Err: processError(ctx, c.bin, err)}
	}

	return nil
}

// run executes c for its exit status only.
func run(ctx context.Context, c command) error {
	output := &tailBuffer{max: maxCapturedOutput}
	cmd := c.build(ctx)
	cmd.Stdout = output
	cmd.Stderr = output

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w, output: %s", processError(ctx, c.bin, err), output.String())
	}
	return nil
}

func processError(ctx context.Context, bin string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s killed: %w", bin, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%s exited with code %d: %w", bin, exitErr.ExitCode(), err)
	}
	return fmt.Errorf("%s: %w", bin, err)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
