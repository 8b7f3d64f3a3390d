package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"time"

	"docmatch/internal/apperrors"
)

// SubprocessProvider runs a local command per embedding. The command reads
// the document text on stdin and prints {"embedding": [...]} on stdout.
type SubprocessProvider struct {
	command string
	args    []string
	timeout time.Duration
}

func NewSubprocessProvider(command string, args []string, timeout time.Duration) *SubprocessProvider {
	return &SubprocessProvider{
		command: command,
		args:    args,
		timeout: timeout,
	}
}

func (p *SubprocessProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &apperrors.ProviderError{
			Op:  "run " + p.command,
			Err: transientError{errors.Join(err, errors.New(stderr.String()))},
		}
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, &apperrors.ProviderError{Op: "decode output", Err: err}
	}

	if len(result.Embedding) == 0 {
		return nil, &apperrors.ProviderError{Op: "decode output", Err: errors.New("no embedding returned")}
	}

	return result.Embedding, nil
}
