package annotator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"ieprep/internal/services"
	"ieprep/internal/stage"
)

// Tasks understood by annotator tools.
const (
	TaskPOSTag    = "pos-tag"
	TaskEntities  = "entities"
	maxStderrTail = 512
)

// Request is written to the tool's stdin.
type Request struct {
	Task       string   `json:"task"`
	DocumentID string   `json:"document_id"`
	Text       string   `json:"text"`
	Tokens     []string `json:"tokens"`
	Sentences  []int    `json:"sentences"`
	PosTags    []string `json:"postags,omitempty"`
}

// Entity is one span reported by an entity tool. Offsets are token indices.
type Entity struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Kind       string  `json:"kind"`
	Key        string  `json:"key,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Response is read from the tool's stdout.
type Response struct {
	PosTags  []string `json:"postags,omitempty"`
	Entities []Entity `json:"entities,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error)
	LookPath(binary string) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client invokes one external annotator tool.
type Client struct {
	name    string
	binary  string
	args    []string
	timeout time.Duration
	exec    Executor
}

// New constructs a client. name labels errors and health output.
func New(name, binary string, args []string, timeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, name, "configure annotator", "command is required", nil)
	}
	client := &Client{
		name:    name,
		binary:  binary,
		args:    append([]string(nil), args...),
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured command.
func (c *Client) Binary() string {
	return c.binary
}

// Annotate sends req to the tool and decodes its reply.
func (c *Client) Annotate(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, services.Wrap(services.ErrValidation, c.name, "encode request", "", err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out, err := c.exec.Run(runCtx, c.binary, c.args, payload)
	if err != nil {
		return Response{}, c.classify(runCtx, err)
	}

	var resp Response
	if err := json.Unmarshal(bytes.TrimSpace(out), &resp); err != nil {
		return Response{}, services.WithHint(
			services.Wrap(services.ErrExternalTool, c.name, "decode response", "tool wrote invalid JSON", err),
			"the tool must print one JSON object on stdout",
		)
	}
	if msg := strings.TrimSpace(resp.Error); msg != "" {
		return Response{}, services.Wrap(services.ErrExternalTool, c.name, "annotate", msg, nil)
	}
	return resp, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return services.WithHint(
			services.Wrap(services.ErrUnavailable, c.name, "start "+c.binary, "command not runnable", err),
			"install the tool or fix its command in the config",
		)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, c.name, "run "+c.binary,
			fmt.Sprintf("no reply within %s", c.timeout), err)
	default:
		return services.Wrap(services.ErrExternalTool, c.name, "run "+c.binary, "tool failed", err)
	}
}

// HealthCheck verifies the command resolves to an executable.
func (c *Client) HealthCheck(context.Context) stage.Health {
	if _, err := c.exec.LookPath(c.binary); err != nil {
		return stage.Unhealthy(c.name, fmt.Sprintf("%s: %v", c.binary, err))
	}
	return stage.Healthy(c.name)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		tail := strings.TrimSpace(stderr.String())
		if len(tail) > maxStderrTail {
			tail = tail[len(tail)-maxStderrTail:]
		}
		if tail != "" {
			return nil, fmt.Errorf("%w: %s", err, tail)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (commandExecutor) LookPath(binary string) (string, error) {
	return exec.LookPath(binary)
}
