package meter

import (
	"context"
	"fmt"
)

// Registry is the read side of the point registry as the pipeline sees it:
// a snapshot of normalized keys and per-point configs. Implementations
// cache; the pipeline never sees a default config for an unknown point.
type Registry interface {
	// Keys returns the normalized-key -> canonical-id snapshot.
	Keys(ctx context.Context) (map[string]string, error)
	// Lookup returns the config for a canonical id, or ErrUnknownPoint.
	Lookup(ctx context.Context, pointID string) (PointConfig, error)
}

// Request is one meter photo to process.
type Request struct {
	Image []byte
	// PointID skips resolution when the operator already knows the meter.
	PointID string
	// Manual is the operator-read value for cross-checking, if any.
	Manual *float64
	// Confirmed marks an operator-acknowledged mismatch.
	Confirmed bool
}

// Pipeline wires the preprocessor, OCR provider, resolver, engine and
// validator into the single request flow: preprocess, OCR, resolve, load
// config, extract, validate. Requests run independently; only the registry
// snapshot is shared.
type Pipeline struct {
	Registry  Registry
	Resolver  *Resolver
	Engine    *Engine
	Validator *Validator
}

// NewPipeline assembles the default pipeline around one OCR provider and
// one registry.
func NewPipeline(p Provider, reg Registry) *Pipeline {
	pre := &Preprocessor{}
	return &Pipeline{
		Registry:  reg,
		Resolver:  &Resolver{Provider: p, Pre: pre},
		Engine:    NewEngine(p, pre),
		Validator: &Validator{},
	}
}

// Process runs one request end to end and returns the validated result
// together with the raw engine reading.
func (pl *Pipeline) Process(ctx context.Context, req Request) (Result, Reading, error) {
	pointID := req.PointID
	if pointID == "" {
		keys, err := pl.Registry.Keys(ctx)
		if err != nil {
			return Result{}, Reading{}, err
		}
		pointID, err = pl.Resolver.Resolve(ctx, req.Image, keys)
		if err != nil {
			return Result{}, Reading{}, err
		}
	} else {
		pointID = NormalizeKey(pointID)
	}

	cfg, err := pl.Registry.Lookup(ctx, pointID)
	if err != nil {
		return Result{}, Reading{}, fmt.Errorf("point %s: %w", pointID, err)
	}
	rd, err := pl.Engine.Extract(ctx, req.Image, cfg)
	if err != nil {
		return Result{}, Reading{}, err
	}
	res, err := pl.Validator.Validate(cfg.PointID, rd, cfg, req.Manual, req.Confirmed)
	if err != nil {
		return Result{}, rd, err
	}
	return res, rd, nil
}
