// Package engine bundles a table's state and every entry point behind one
// handle, Table.
//
// ARCHITECTURE:
//
// Serialized Writer:
// Every mutation of a Table, whether it comes from a caller (sort, filter
// keystroke, resize pointer event, pin, scroll) or from asynchronous work
// (debounced filter commit, coalesced scroll frame, fetch completion), is
// applied under one lock. Asynchronous work never touches state from its
// own goroutine: it is posted onto the event queue and applied by Run or
// Drain.
//
// Event Processing Flow:
// 1. A timer or fetch goroutine posts an Event stamped from Clock.Next().
// 2. Run (or Drain, in tests and the CLI) dequeues events in FIFO order.
// 3. The event's Apply runs under the table lock.
// 4. The table re-derives its view: server sync, row count for the
//    virtualizer.
//
// Listeners registered with Subscribe run synchronously inside the lock and
// must not call mutating Table methods.
package engine
