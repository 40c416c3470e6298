package strategy

import (
	"context"

	"go.uber.org/zap"
)

// Combined merges line by line first and only parses the file when that
// leaves conflicts. A structured result is kept only if it has fewer
// conflicts.
type Combined struct {
	LineBased  Strategy
	Structured Strategy
	logger     *zap.Logger
}

func (s *Combined) Name() string { return NameCombined }

func (s *Combined) Merge(ctx context.Context, in Input) (*Result, error) {
	lines, err := s.LineBased.Merge(ctx, in)
	if err != nil {
		return nil, err
	}
	if lines.Conflicts == 0 {
		return lines, nil
	}

	tree, err := s.Structured.Merge(ctx, in)
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Debug("combined merge",
			zap.String("path", in.Path),
			zap.Int("linebased_conflicts", lines.Conflicts),
			zap.Int("structured_conflicts", tree.Conflicts))
	}
	if tree.Conflicts < lines.Conflicts {
		tree.Duration += lines.Duration
		return tree, nil
	}
	lines.Duration += tree.Duration
	return lines, nil
}
