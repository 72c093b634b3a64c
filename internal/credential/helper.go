package credential

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrNoHelper is returned when no helper command is configured.
var ErrNoHelper = errors.New("no credential helper configured")

// Credentials is a username/password pair filled by a helper.
type Credentials struct {
	Username string
	Password string
}

// Helper runs an external credential-fill command. The command speaks the
// git-credential line protocol: it reads "url=<url>" on stdin and prints
// "username=" and "password=" lines.
type Helper struct {
	command string
	shell   string
	logger  *slog.Logger
}

// NewHelper creates a helper for command, run through /bin/sh.
func NewHelper(command string, logger *slog.Logger) *Helper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Helper{command: strings.TrimSpace(command), shell: "/bin/sh", logger: logger}
}

// Fill asks the helper for credentials for url. It returns nil, nil when the
// helper declines: exit status 1 or no password in its output.
func (h *Helper) Fill(ctx context.Context, url string) (*Credentials, error) {
	if h == nil || h.command == "" {
		return nil, ErrNoHelper
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, h.shell, "-c", h.command)
	cmd.Stdin = strings.NewReader(fmt.Sprintf("url=%s\n\n", url))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			h.logger.Info("credential helper declined", "url", url)
			return nil, nil
		}
		return nil, fmt.Errorf("credential helper failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	creds := parse(&stdout)
	if creds.Password == "" {
		h.logger.Info("credential helper returned no password", "url", url)
		return nil, nil
	}
	return creds, nil
}

func parse(r io.Reader) *Credentials {
	creds := &Credentials{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "username":
			creds.Username = value
		case "password":
			creds.Password = value
		}
	}
	return creds
}
