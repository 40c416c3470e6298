// Package graft merges source files and directory trees structurally.
//
// Files are parsed with tree-sitter into syntax trees whose nodes are
// either order-significant (statements, arguments) or not (declarations,
// imports, class members). Two versions are matched node by node, ordered
// children with Simple Tree Matching and unordered children with an
// optimal weighted assignment, and the matchings against the common base
// decide which nodes were added, deleted or changed on each side.
// Directories are merged entry by entry from the revisions an entry is
// present in.
//
// # Usage
//
//	e, err := graft.New(graft.WithStrategy("structured"))
//	if err != nil { ... }
//	defer e.Close()
//
//	report, err := e.Merge(ctx, []string{"left", "base", "right"}, "out")
//	if report.HasConflicts() { ... }
//
// Two inputs give a two-way merge against an empty base. [Engine.MergeBatch]
// runs independent merges on a worker pool.
//
// # Strategies
//
//   - structured: tree merge, falls back to line-based merging for files
//     it cannot parse.
//   - linebased: git merge-file.
//   - combined: line-based first, structured when that leaves conflicts.
//
// # Policies
//
// Which node kinds are unordered is decided per language by a Risor
// script, policy/{language}.risor. The scripts shipped in the scripts
// package are used unless [WithScriptsDir] or [WithPolicyFS] point
// elsewhere. See the internal/runtime package for the globals a policy
// script receives.
//
// # Run history
//
// With [WithStatsDB] or [WithStore] every merge is recorded in SQLite: one
// run row, one row per merged file with its matcher counters, and the
// operations applied to each structurally merged file.
package graft
