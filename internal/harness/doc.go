// Package harness replays recorded UI event sequences against a table and
// checks the resulting view.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	columns:
//	  - { id: name, sortable: true }
//	  - { id: city, pinned: left, width: "120" }
//	options:
//	  fuzzy: { enabled: true, keys: [name], threshold: 0.3 }
//	rows:
//	  - { id: 1, name: Ada, city: London }
//	steps:
//	  - sort: name
//	  - filter: "ad"
//	  - advance: 300ms
//	  - resize: { column: name, from: 0, moves: [40] }
//	  - pin: { column: name, side: right }
//	assertions:
//	  - type: view_order
//	    column: name
//	    expect: [Ada]
//
// A scenario may instead name a CUE file and a table in it:
//
//	spec: tables.cue
//	table: people
//
// # Steps
//
// sort, clear_sort, filter, flush, advance, resize, pin, visibility, scroll,
// scroll_to, container_height, page and reset each map to one table entry
// point. Exactly one may be set per step.
//
// # Assertion Types
//
//   - view_order: the view's values for a column, in order
//   - row_count: the number of view rows
//   - window: the materialized start and end indexes
//   - width: a column's effective width
//   - column_order: rendered column ids, in order
//   - pinned: the left and right pin lists
//
// # Deterministic Testing
//
// Timers run on testutil.ManualScheduler: a debounced filter commits only
// when an advance step moves the clock past the delay. Fetch tokens come
// from testutil.FixedTokenGenerator and server-paged scenarios read from an
// in-memory SQLite dataset. Every step is settled before the next runs, so
// traces are identical across runs and suitable for golden comparison.
package harness
