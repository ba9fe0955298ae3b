package conversation

import (
	"context"

	"github.com/simao-ai/rural-platform/pkg/logging"
)

// FallbackLLMClient tries the primary provider and retries once on the
// fallback. With no fallback configured it degenerates to the primary.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	log      *logging.Logger
}

func NewFallbackLLMClient(primary, fallback LLMClient, log *logging.Logger) *FallbackLLMClient {
	if primary == nil {
		panic("conversation: primary llm client is required")
	}
	if log == nil {
		log = logging.Default()
	}
	return &FallbackLLMClient{primary: primary, fallback: fallback, log: log}
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.log.Warn("primary llm failed", "error", err, "fallback_available", c.fallback != nil)
	if c.fallback == nil {
		return LLMResponse{}, err
	}

	resp, fbErr := c.fallback.Complete(ctx, req)
	if fbErr != nil {
		c.log.Error("fallback llm also failed", "primary_error", err, "fallback_error", fbErr)
		return LLMResponse{}, fbErr
	}
	c.log.Info("fallback llm answered after primary failure")
	return resp, nil
}
