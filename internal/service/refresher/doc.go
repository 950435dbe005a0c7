// Package refresher drives revenue-context resolution from outside the
// core: it computes the window's conversion total from stored performance
// rows, serializes the resolve against concurrent writers with a
// distributed lock, and keeps the Redis context cache warm. The API serves
// on-demand refreshes through it and the worker sweeps every active
// campaign on an interval; the core resolver itself carries no timers.
package refresher
