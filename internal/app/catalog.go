package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"friday/internal/config"
	"friday/internal/skills"
)

// TaughtSource supplies the patterns users taught, e.g. the database store.
type TaughtSource interface {
	LoadTaughtSkill(ctx context.Context) (skills.Skill, error)
}

// Assistant builds the handler context from configuration.
func Assistant(cfg *config.Config, logger logrus.FieldLogger) *skills.Assistant {
	return &skills.Assistant{
		Name:            cfg.Assistant.Name,
		CallsMe:         cfg.Assistant.CallsMe,
		DefaultLocation: cfg.Skills.DefaultLocation,
		Logger:          logger,
	}
}

// Skills lists every skill in match order: built-ins first, then the
// catalog file, then taught patterns. taught may be nil.
func Skills(ctx context.Context, cfg *config.Config, taught TaughtSource, invoker skills.Invoker) ([]skills.Skill, error) {
	out := skills.Builtin()

	if cfg.Skills.CatalogFile != "" {
		fromFile, err := skills.LoadCatalogFile(cfg.Skills.CatalogFile, invoker, cfg.ToolTimeout)
		if err != nil {
			return nil, err
		}
		out = append(out, fromFile...)
	}

	if taught != nil {
		sk, err := taught.LoadTaughtSkill(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, sk)
	}
	return out, nil
}

// BuildCatalog registers every skill and compiles the shared catalog.
func BuildCatalog(ctx context.Context, cfg *config.Config, taught TaughtSource, invoker skills.Invoker, logger logrus.FieldLogger) (*skills.Catalog, error) {
	all, err := Skills(ctx, cfg, taught, invoker)
	if err != nil {
		return nil, err
	}
	registry := skills.NewRegistry()
	registry.Register(all...)
	catalog, err := registry.Build(Assistant(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("register skills: %w", err)
	}
	return catalog, nil
}
