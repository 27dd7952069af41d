// Package reconciler keeps a host tree in sync with successive element trees.
//
// Each Render (or state dispatch) starts a work cycle: a work-in-progress
// fiber tree is built one fiber at a time, diffing every fiber's children
// against the fiber occupying the same position in the last committed tree
// (its alternate). Each new fiber is tagged PLACEMENT or UPDATE and each
// displaced old fiber is tagged DELETION and queued.
//
// The work loop is cooperative. WorkLoop processes whole fibers until the
// deadline it is handed runs out, then returns; the next call resumes from
// the exact fiber where it stopped. When no fiber remains, the accumulated
// effects are committed to the host in one uninterrupted pass and the
// work-in-progress tree becomes the current tree.
//
// Fibers live in an arena and link to each other by index. Unreachable
// fibers are reclaimed after every commit.
//
// A Scheduler is not safe for concurrent use. Render, WorkLoop, and every
// hook dispatch must run on the goroutine that owns it; package driver
// provides such a loop.
package reconciler
