package files

import (
	"context"
	"fmt"
	"strings"

	"github.com/jward/graft/internal/artifact"
)

// Operation is one step of a directory merge.
type Operation interface {
	Apply(ctx context.Context, o *Orchestrator) error
	Name() string
	String() string
}

// AddOperation copies Source into the output directory Target.
type AddOperation struct {
	Source *FileArtifact
	Target *FileArtifact
}

func (op *AddOperation) Apply(ctx context.Context, o *Orchestrator) error {
	out, err := op.Source.CopyInto(op.Target)
	if err != nil {
		return err
	}
	o.report.add("ADD", fmt.Sprintf("%s -> %s", op.Source, out.Path()))
	o.report.Added++
	return nil
}

func (op *AddOperation) Name() string { return "ADD" }

func (op *AddOperation) String() string {
	return fmt.Sprintf("ADD %s into %s", op.Source, op.Target.Path())
}

// DeleteOperation drops an entry from the result. The output is never
// touched; the entry is simply not copied.
type DeleteOperation struct {
	Artifact *FileArtifact
}

func (op *DeleteOperation) Apply(ctx context.Context, o *Orchestrator) error {
	o.report.add("DELETE", op.Artifact.String())
	o.report.Deleted++
	return nil
}

func (op *DeleteOperation) Name() string { return "DELETE" }

func (op *DeleteOperation) String() string {
	return "DELETE " + op.Artifact.String()
}

// MergeOperation merges the entries of a scenario into Target. Directories
// are classified entry by entry; files go to the FileMerger.
type MergeOperation struct {
	Scenario artifact.Scenario[*FileArtifact]
	Target   *FileArtifact
}

func (op *MergeOperation) Apply(ctx context.Context, o *Orchestrator) error {
	o.report.add("MERGE", op.describe())
	if op.Scenario.Left.IsDir() {
		o.report.Directories++
		return o.mergeDirectory(ctx, op.Scenario, op.Target)
	}
	o.report.Files++
	if err := o.merger.MergeFile(ctx, op.Scenario, op.Target); err != nil {
		return fmt.Errorf("files: merge %s: %w", op.Target.Path(), err)
	}
	return nil
}

func (op *MergeOperation) Name() string { return "MERGE" }

func (op *MergeOperation) String() string {
	return "MERGE " + op.describe()
}

func (op *MergeOperation) describe() string {
	s := op.Scenario
	inputs := []string{s.Left.String()}
	if s.Type == artifact.ThreeWay {
		inputs = append(inputs, s.Base.String())
	}
	inputs = append(inputs, s.Right.String())
	return fmt.Sprintf("%s %s -> %s", s.Type, strings.Join(inputs, " "), op.Target.Path())
}

// Stack holds pending operations. The last pushed operation is applied
// first.
type Stack struct {
	ops []Operation
}

func (s *Stack) Push(op Operation) {
	s.ops = append(s.ops, op)
}

// Pop removes and returns the most recently pushed operation.
func (s *Stack) Pop() (Operation, bool) {
	if len(s.ops) == 0 {
		return nil, false
	}
	op := s.ops[len(s.ops)-1]
	s.ops = s.ops[:len(s.ops)-1]
	return op, true
}

func (s *Stack) Len() int { return len(s.ops) }
