// Package actions holds the concrete transformations: each maps a small
// parameter set to one ffmpeg invocation writing {stem}_{tag}.{ext}.
package actions

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/samber/lo"

	"video-matrix/internal/catalog"
	"video-matrix/internal/domain"
	"video-matrix/internal/ffmpeg"
)

// ErrMissingMaterial is returned when an overlay transformation has no material file configured.
var ErrMissingMaterial = errors.New("material file not configured")

// argsFunc builds ffmpeg arguments (after the fixed preamble) for src -> dst.
type argsFunc func(ctx context.Context, env buildEnv) ([]string, error)

// buildEnv is everything an argument builder may consult.
type buildEnv struct {
	src    string
	dst    string
	params catalog.Params
	tool   *ffmpeg.Tool
}

// recipe describes one transformation and how to present it.
type recipe struct {
	id          string
	tag         string
	name        string
	group       domain.TransformationGroup
	description string
	params      []string
	build       argsFunc
}

// Action is a Transformation backed by a single ffmpeg run.
type Action struct {
	recipe recipe
	tool   *ffmpeg.Tool
}

// ID returns the registry key.
func (a *Action) ID() string { return a.recipe.id }

// Tag returns the output suffix.
func (a *Action) Tag() string { return a.recipe.tag }

// Apply runs ffmpeg and returns the written output path.
func (a *Action) Apply(ctx context.Context, req catalog.Request) (string, error) {
	dst, err := ffmpeg.OutputPath(req.InputPath, req.OutputDir, a.recipe.tag)
	if err != nil {
		return "", err
	}

	args, err := a.recipe.build(ctx, buildEnv{
		src:    req.InputPath,
		dst:    dst,
		params: req.Params,
		tool:   a.tool,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.recipe.id, err)
	}

	if err := a.tool.Run(ctx, args...); err != nil {
		return "", err
	}
	return dst, nil
}

// Register adds every built-in transformation to reg.
func Register(reg *catalog.Registry, tool *ffmpeg.Tool) {
	for _, s := range recipes() {
		reg.Register(&Action{recipe: s, tool: tool})
	}
}

// NewRegistry returns a registry holding every built-in transformation.
func NewRegistry(tool *ffmpeg.Tool) *catalog.Registry {
	reg := catalog.NewRegistry()
	Register(reg, tool)
	return reg
}

// Options returns display metadata for the built-in transformations, in
// presentation order.
func Options() []domain.TransformationOption {
	return lo.Map(recipes(), func(s recipe, _ int) domain.TransformationOption {
		return domain.TransformationOption{
			ID:          s.id,
			Name:        s.name,
			Tag:         s.tag,
			Group:       s.group,
			Description: s.description,
			Params:      append([]string(nil), s.params...),
		}
	})
}

// OptionsByGroup groups Options by their group.
func OptionsByGroup() map[domain.TransformationGroup][]domain.TransformationOption {
	return lo.GroupBy(Options(), func(o domain.TransformationOption) domain.TransformationGroup {
		return o.Group
	})
}

// uniform returns a random value in [lo, hi).
var uniform = func(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rand.Float64()*(hi-lo)
}

// pick returns a random element of choices.
var pick = func(choices []string) string {
	return choices[rand.Intn(len(choices))]
}

// filterArgs is the common "-i src -vf filter -c:a copy dst" shape.
func filterArgs(src, filter, dst string) []string {
	return []string{"-i", src, "-vf", filter, "-c:a", "copy", dst}
}
