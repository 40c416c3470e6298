package files

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/jward/graft/internal/artifact"
)

// FileMerger merges the files of a scenario into target. In a two-way
// scenario the base is an empty dummy.
type FileMerger interface {
	MergeFile(ctx context.Context, s artifact.Scenario[*FileArtifact], target *FileArtifact) error
}

// FileMergerFunc adapts a function to FileMerger.
type FileMergerFunc func(ctx context.Context, s artifact.Scenario[*FileArtifact], target *FileArtifact) error

func (f FileMergerFunc) MergeFile(ctx context.Context, s artifact.Scenario[*FileArtifact], target *FileArtifact) error {
	return f(ctx, s, target)
}

// Report lists the operations applied by one merge.
type Report struct {
	Lines       []string `json:"lines"`
	Added       int      `json:"added"`
	Deleted     int      `json:"deleted"`
	Files       int      `json:"files"`
	Directories int      `json:"directories"`
}

func (r *Report) add(kind, detail string) {
	r.Lines = append(r.Lines, kind+" "+detail)
}

// Orchestrator merges files and directory trees. An Orchestrator serves a
// single merge invocation at a time.
type Orchestrator struct {
	merger FileMerger
	logger *zap.Logger
	report *Report
	ops    int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New returns an Orchestrator handing file merges to merger.
func New(merger FileMerger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		merger: merger,
		logger: zap.NewNop(),
		report: &Report{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Report returns the report of the operations applied so far.
func (o *Orchestrator) Report() *Report {
	return o.report
}

// Merge merges inputs (left, right or left, base, right) into output.
// Files are merged with a single merge operation; directories are merged
// entry by entry. The first failing operation aborts the merge; output
// written up to then is left in place.
func (o *Orchestrator) Merge(ctx context.Context, mt artifact.MergeType, inputs []*FileArtifact, output *FileArtifact) error {
	if mt != artifact.TwoWay && mt != artifact.ThreeWay {
		return fmt.Errorf("files: %w: %d", artifact.ErrUnsupportedMergeType, int(mt))
	}
	if len(inputs) != mt.NumFiles() {
		return fmt.Errorf("files: %w: %s merge with %d inputs", artifact.ErrUnsupportedMergeType, mt, len(inputs))
	}
	s, err := artifact.NewScenario(inputs, func() *FileArtifact { return EmptyDummy(artifact.Base) })
	if err != nil {
		return fmt.Errorf("files: %w", err)
	}
	if err := checkKinds(s.Left, s.Base, s.Right); err != nil {
		return err
	}
	if s.Left.IsDir() != output.IsDir() {
		return fmt.Errorf("files: %w: output %s", ErrKindMismatch, output.Path())
	}

	var stack Stack
	stack.Push(&MergeOperation{Scenario: s, Target: output})
	return o.drain(ctx, &stack)
}

// mergeDirectory classifies every entry of the three directories and
// applies the resulting operations in name order.
func (o *Orchestrator) mergeDirectory(ctx context.Context, s artifact.Scenario[*FileArtifact], target *FileArtifact) error {
	if err := os.MkdirAll(target.Path(), 0o755); err != nil {
		return fmt.Errorf("files: create %s: %w", target.Path(), err)
	}

	revs := []artifact.Revision{artifact.Left, artifact.Base, artifact.Right}
	byRev := make(map[artifact.Revision]map[string]*FileArtifact, len(revs))
	var names []string
	for i, dir := range []*FileArtifact{s.Left, s.Base, s.Right} {
		children, err := dir.Children()
		if err != nil {
			return err
		}
		byRev[revs[i]] = lo.KeyBy(children, (*FileArtifact).Name)
		names = append(names, lo.Keys(byRev[revs[i]])...)
	}
	names = lo.Uniq(names)
	sort.Strings(names)

	ops := make([]Operation, 0, len(names))
	for _, name := range names {
		from := make(map[artifact.Revision]*FileArtifact, len(revs))
		var p Presence
		for _, rev := range revs {
			if c, ok := byRev[rev][name]; ok {
				from[rev] = c
				p |= PresenceOf(rev)
			}
		}
		left, base, right := from[artifact.Left], from[artifact.Base], from[artifact.Right]

		d, err := Decide(p)
		if err != nil {
			return fmt.Errorf("files: %s: %w", name, err)
		}
		if err := checkKinds(left, base, right); err != nil {
			return err
		}
		o.logger.Debug("classified entry",
			zap.String("name", name),
			zap.Stringer("presence", p),
			zap.Stringer("action", d.Action))

		switch d.Action {
		case ActionAdd:
			ops = append(ops, &AddOperation{Source: from[d.From], Target: target})
		case ActionDelete:
			ops = append(ops, &DeleteOperation{Artifact: from[d.From]})
		case ActionMergeTwoWay, ActionMergeThreeWay:
			child, err := target.AddChild(name, left.IsDir())
			if err != nil {
				return err
			}
			sub := artifact.Scenario[*FileArtifact]{Type: artifact.TwoWay, Left: left, Base: EmptyDummy(artifact.Base), Right: right}
			if d.Action == ActionMergeThreeWay {
				sub.Type, sub.Base = artifact.ThreeWay, base
			}
			ops = append(ops, &MergeOperation{Scenario: sub, Target: child})
		}
	}

	var stack Stack
	for i := len(ops) - 1; i >= 0; i-- {
		stack.Push(ops[i])
	}
	return o.drain(ctx, &stack)
}

func (o *Orchestrator) drain(ctx context.Context, stack *Stack) error {
	for {
		op, ok := stack.Pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		o.ops++
		o.logger.Debug(fmt.Sprintf("OP%d: %s", o.ops, op))
		if err := op.Apply(ctx, o); err != nil {
			return err
		}
	}
}

// checkKinds fails when the present entries are not all files or all
// directories. Empty dummies fit either.
func checkKinds(entries ...*FileArtifact) error {
	var first *FileArtifact
	for _, e := range entries {
		if e == nil || e.IsEmptyDummy() {
			continue
		}
		if first == nil {
			first = e
			continue
		}
		if e.IsDir() != first.IsDir() {
			return fmt.Errorf("files: %w: %s and %s", ErrKindMismatch, first, e)
		}
	}
	return nil
}
