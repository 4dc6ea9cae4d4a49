// Package dag turns a task model into an execution plan. It builds a
// directed acyclic graph of targets from their `depends_on` lists, rejects
// cycles, and linearizes the requested goals into a Plan the executor can
// run serially or concurrently.
package dag
