package commands

import (
	"context"
	"fmt"

	"github.com/haivivi/livepipe/cmd/livepipe/internal/config"
	"github.com/haivivi/livepipe/pkg/live"
	"github.com/haivivi/livepipe/pkg/live/gemini"
	"github.com/haivivi/livepipe/pkg/live/openairt"
	"github.com/haivivi/livepipe/pkg/runner"
)

// contextName is the shared --context flag for commands that resolve a
// context. Empty means the current context.
var contextName string

// resolveDial builds a runner dial function for the named backend from the
// resolved context's configuration. The --model flag overrides the
// configured model when non-empty.
func resolveDial(backend, modelOverride string) (runner.DialFunc, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	dir, err := cfg.ResolveContext(contextName)
	if err != nil {
		return nil, err
	}

	switch backend {
	case "gemini":
		svc, err := config.LoadService[config.Gemini](dir, "gemini")
		if err != nil {
			return nil, err
		}
		gcfg := &gemini.Config{
			Model:              svc.Model,
			APIKey:             svc.APIKey,
			SystemInstruction:  svc.SystemInstruction,
			ResponseModalities: svc.Modalities,
		}
		if modelOverride != "" {
			gcfg.Model = modelOverride
		}
		return func(ctx context.Context) (live.Connection, error) {
			return gemini.Dial(ctx, gcfg)
		}, nil

	case "openai":
		svc, err := config.LoadService[config.OpenAI](dir, "openai")
		if err != nil {
			return nil, err
		}
		ocfg := &openairt.Config{
			Model:        svc.Model,
			APIKey:       svc.APIKey,
			URL:          svc.URL,
			Organization: svc.Organization,
			Instructions: svc.Instructions,
			Modalities:   svc.Modalities,
		}
		if modelOverride != "" {
			ocfg.Model = modelOverride
		}
		return func(ctx context.Context) (live.Connection, error) {
			return openairt.Dial(ctx, ocfg)
		}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q (want gemini or openai)", backend)
	}
}
