package provider

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Failover tries multiple providers in order, falling back to the next
// one when the current fails. It implements both Provider and
// StreamingProvider.
type Failover struct {
	providers []Provider
	logger    *zap.Logger
}

// NewFailover creates a failover chain from the given providers.
// At least one provider is required.
func NewFailover(providers []Provider, logger *zap.Logger) *Failover {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Failover{
		providers: providers,
		logger:    logger,
	}
}

func (fp *Failover) Name() string {
	names := make([]string, len(fp.providers))
	for i, p := range fp.providers {
		names[i] = p.Name()
	}
	return "failover(" + strings.Join(names, ",") + ")"
}

func (fp *Failover) Models() []string {
	var all []string
	seen := make(map[string]bool)
	for _, p := range fp.providers {
		for _, m := range p.Models() {
			if !seen[m] {
				seen[m] = true
				all = append(all, m)
			}
		}
	}
	return all
}

func (fp *Failover) SupportsToolCalling() bool {
	for _, p := range fp.providers {
		if p.SupportsToolCalling() {
			return true
		}
	}
	return false
}

func (fp *Failover) Healthy(ctx context.Context) error {
	for _, p := range fp.providers {
		if err := p.Healthy(ctx); err == nil {
			return nil
		}
	}
	return fmt.Errorf("no healthy provider in failover chain")
}

// Chat tries each provider in order. Returns the first successful response.
func (fp *Failover) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var lastErr error
	for i, p := range fp.providers {
		resp, err := p.Chat(ctx, req)
		if err == nil {
			if i > 0 {
				fp.logger.Info("failover: used fallback provider",
					zap.String("provider", p.Name()),
					zap.Int("attempt", i+1),
				)
			}
			return resp, nil
		}
		lastErr = err
		fp.logger.Warn("failover: provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("all providers in failover chain failed: %w", lastErr)
}

// ChatStream uses the first streaming provider in the chain.
//
// Streaming failover with retry is unsafe because each provider's ChatStream
// closes the output channel on return (via defer close). If we passed the
// same channel to a second provider after the first failed, writing to the
// already-closed channel would panic. Therefore the first streaming provider
// is used directly without retry. Non-streaming Chat() still does full
// failover.
func (fp *Failover) ChatStream(ctx context.Context, req ChatRequest, out chan<- StreamEvent) error {
	for _, p := range fp.providers {
		sp, ok := p.(StreamingProvider)
		if !ok {
			continue
		}
		return sp.ChatStream(ctx, req, out)
	}

	// No streaming provider found: fall back to non-streaming Chat.
	defer close(out)
	resp, err := fp.Chat(ctx, req)
	if err != nil {
		return err
	}
	if resp.Content != "" {
		out <- StreamEvent{Type: StreamToken, Content: resp.Content}
	}
	out <- StreamEvent{
		Type:      StreamDone,
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
		Usage:     &resp.Usage,
	}
	return nil
}
