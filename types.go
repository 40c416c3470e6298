package graft

import (
	"github.com/jward/graft/internal/artifact"
	"github.com/jward/graft/internal/files"
	"github.com/jward/graft/internal/matcher"
	"github.com/jward/graft/internal/parser"
	"github.com/jward/graft/internal/store"
	"github.com/jward/graft/internal/strategy"
)

// Public type aliases for internal types used in the Engine API.

type Store = store.Store
type Run = store.Run
type FileRecord = store.FileResult
type OperationRecord = store.Operation

type MergeType = artifact.MergeType
type FileResult = strategy.Result
type OperationReport = files.Report
type Counters = matcher.Counters
type Markers = parser.Markers

const (
	TwoWay   = artifact.TwoWay
	ThreeWay = artifact.ThreeWay
)

// Strategy names accepted by WithStrategy.
const (
	StrategyStructured = strategy.NameStructured
	StrategyLineBased  = strategy.NameLineBased
	StrategyCombined   = strategy.NameCombined
)
