package annotator_test

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"ieprep/internal/services"
	"ieprep/internal/services/annotator"
	"ieprep/internal/testsupport"
)

type stubExecutor struct {
	out     string
	err     error
	block   bool
	request annotator.Request
	calls   int
}

func (s *stubExecutor) Run(ctx context.Context, _ string, _ []string, stdin []byte) ([]byte, error) {
	s.calls++
	if err := json.Unmarshal(stdin, &s.request); err != nil {
		return nil, err
	}
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []byte(s.out), s.err
}

func (s *stubExecutor) LookPath(binary string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "/usr/bin/" + binary, nil
}

func newClient(t *testing.T, exec *stubExecutor, timeout int) *annotator.Client {
	t.Helper()
	client, err := annotator.New("tagger", "nlp-tool", []string{"--json"}, timeout, annotator.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestAnnotateDecodesResponse(t *testing.T) {
	exec := &stubExecutor{out: `{"postags":["NNP","VBD"]}`}
	client := newClient(t, exec, 5)

	resp, err := client.Annotate(context.Background(), annotator.Request{
		Task:       annotator.TaskPOSTag,
		DocumentID: "doc-1",
		Tokens:     []string{"Ann", "left"},
		Sentences:  []int{0, 2},
	})
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(resp.PosTags) != 2 || resp.PosTags[0] != "NNP" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if exec.request.DocumentID != "doc-1" || exec.request.Task != annotator.TaskPOSTag {
		t.Fatalf("unexpected request: %+v", exec.request)
	}
}

func TestAnnotateClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		exec *stubExecutor
		want error
	}{
		{name: "missing binary", exec: &stubExecutor{err: exec.ErrNotFound}, want: services.ErrUnavailable},
		{name: "non-zero exit", exec: &stubExecutor{err: errors.New("exit status 3")}, want: services.ErrExternalTool},
		{name: "bad json", exec: &stubExecutor{out: "not json"}, want: services.ErrExternalTool},
		{name: "tool error field", exec: &stubExecutor{out: `{"error":"model not loaded"}`}, want: services.ErrExternalTool},
		{name: "timeout", exec: &stubExecutor{block: true}, want: services.ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, tt.exec, 1)
			_, err := client.Annotate(context.Background(), annotator.Request{DocumentID: "d"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMissingBinaryIsFatalAndTimeoutRecoverable(t *testing.T) {
	_, err := newClient(t, &stubExecutor{err: exec.ErrNotFound}, 1).Annotate(context.Background(), annotator.Request{})
	if !services.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	_, err = newClient(t, &stubExecutor{block: true}, 1).Annotate(context.Background(), annotator.Request{})
	if !services.IsRecoverable(err) {
		t.Fatalf("expected recoverable error, got %v", err)
	}
}

func TestNewRequiresCommand(t *testing.T) {
	if _, err := annotator.New("tagger", "  ", nil, 1); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	if h := newClient(t, &stubExecutor{}, 1).HealthCheck(context.Background()); !h.Ready {
		t.Fatalf("expected ready, got %+v", h)
	}
	if h := newClient(t, &stubExecutor{err: exec.ErrNotFound}, 1).HealthCheck(context.Background()); h.Ready {
		t.Fatalf("expected unhealthy, got %+v", h)
	}
}

func TestCommandExecutorRunsRealProcess(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(`{"postags":["UH"]}`, "stub-tagger"))
	_ = cfg

	client, err := annotator.New("tagger", "stub-tagger", nil, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := client.Annotate(ctx, annotator.Request{DocumentID: "d", Tokens: []string{"Hi"}})
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if len(resp.PosTags) != 1 || resp.PosTags[0] != "UH" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	missing, err := annotator.New("tagger", filepath.Join(t.TempDir(), "absent"), nil, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := missing.Annotate(ctx, annotator.Request{}); !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("expected unavailable for missing binary, got %v", err)
	}
}
