// Package providerutils is the chat provider utility package
package providerutils

import (
	"fmt"
	"log/slog"

	"github.com/lorebookhq/lorebook/pkg/llm/provider"
	"github.com/lorebookhq/lorebook/pkg/llm/provider/ollama"
	"github.com/lorebookhq/lorebook/pkg/llm/provider/static"
)

type NewProviderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Logger       *slog.Logger
}

func NewProvider(o *NewProviderOpts) (provider.Provider, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.New(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		}, o.Logger), nil
	case "static", "":
		return static.New(""), nil
	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", o.ProviderType)
	}
}
