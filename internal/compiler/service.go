package compiler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
)

// DefaultServiceTimeout bounds one translation request.
const DefaultServiceTimeout = 30 * time.Second

// maxResponseBytes caps how much of a translation response is read.
const maxResponseBytes = 64 << 20

// Service posts CQL to a translation endpoint and reads the ELM it returns.
type Service struct {
	endpoint string
	client   *http.Client
}

// NewService creates a Service for endpoint. A nil client gets one with
// DefaultServiceTimeout.
func NewService(endpoint string, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: DefaultServiceTimeout}
	}
	return &Service{endpoint: endpoint, client: client}
}

// Compile implements Compiler. A Library without CQL falls back to its
// attached ELM.
func (s *Service) Compile(ctx context.Context, src Source) (*Result, error) {
	logger := ctxlog.FromContext(ctx).With("library", src.Name)
	if len(src.CQL) == 0 {
		return NewEmbedded().Compile(ctx, src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(src.CQL))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/cql")
	req.Header.Set("Accept", ContentTypeELM)

	logger.Debug("Sending CQL to translation service.", "endpoint", s.endpoint, "bytes", len(src.CQL))
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	// A 400 still carries an ELM document listing the translation errors.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusBadRequest {
		return nil, fmt.Errorf("translation service returned %s", resp.Status)
	}

	diags, err := annotationDiagnostics("compiler", src.Name, body)
	if err != nil {
		return nil, err
	}
	logger.Debug("Received ELM from translation service.", "status", resp.Status, "diagnostics", len(diags))
	return &Result{ELM: body, Diagnostics: diags}, nil
}
