// Copyright 2026 The Parlor Authors
// SPDX-License-Identifier: Apache-2.0

// Package future provides one-shot asynchronous results for the startup
// sequence.
//
// A Future is resolved exactly once by the goroutine Go starts and can
// be read any number of times afterward. Two waiting disciplines cover
// the two ways the startup sequence consumes a task: Join propagates
// the task's error to the caller, Settle waits for completion but only
// logs a failure. A task that a stage settled can still be joined later
// and its recorded result is returned unchanged.
//
// Tasks are not cancellable: once started they run to completion. Only
// the wait is context-bounded.
package future

import (
	"context"
	"fmt"
	"log/slog"
)

// Void is the result type of tasks that produce no value.
type Void = struct{}

// Awaitable is the part of a Future the settle helpers need: a name for
// diagnostics and a strict wait.
type Awaitable interface {
	// Name identifies the task in logs.
	Name() string

	// Wait blocks until the task completes or ctx ends. It returns the
	// task's error, or ctx.Err() if the context ended first.
	Wait(ctx context.Context) error
}

// Future is a one-shot asynchronous result. The zero value is not
// usable; construct with Go, Do, Resolved, or Rejected.
type Future[T any] struct {
	name  string
	done  chan struct{}
	value T
	err   error
}

// Go starts fn in a new goroutine and returns the Future it resolves.
// The name identifies the task in logs and errors.
//
// A panic in fn is captured as the task's error: the task goroutine
// cannot reach the caller's error surfaces, so an uncaught panic there
// would end the process before anything renders.
func Go[T any](name string, fn func() (T, error)) *Future[T] {
	f := &Future[T]{name: name, done: make(chan struct{})}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("%s: panic: %v", name, r)
			}
			close(f.done)
		}()
		f.value, f.err = fn()
	}()
	return f
}

// Do starts a task that produces no value.
func Do(name string, fn func() error) *Future[Void] {
	return Go(name, func() (Void, error) { return Void{}, fn() })
}

// Resolved returns an already-completed Future holding value.
func Resolved[T any](name string, value T) *Future[T] {
	f := &Future[T]{name: name, done: make(chan struct{}), value: value}
	close(f.done)
	return f
}

// Rejected returns an already-failed Future holding err.
func Rejected[T any](name string, err error) *Future[T] {
	f := &Future[T]{name: name, done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Name identifies the task in logs.
func (f *Future[T]) Name() string { return f.name }

// Join blocks until the task completes and returns its result. If ctx
// ends first, Join returns the zero value and ctx.Err(); the task keeps
// running and a later Join sees its result.
func (f *Future[T]) Join(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Wait is Join without the value.
func (f *Future[T]) Wait(ctx context.Context) error {
	_, err := f.Join(ctx)
	return err
}

// Settle blocks until the task completes, logging a Warn with the task
// name if it failed. The failure is not propagated; the recorded result
// remains available through Join. Settle returns an error only when ctx
// ended before the task completed.
func (f *Future[T]) Settle(ctx context.Context, logger *slog.Logger) error {
	select {
	case <-f.done:
		if f.err != nil {
			logger.Warn("startup task failed", "task", f.name, "error", f.err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SettleAll settles every task in list order, so diagnostics appear in
// a stable order regardless of completion order. It returns an error
// only when ctx ended before all tasks completed.
func SettleAll(ctx context.Context, logger *slog.Logger, tasks ...Awaitable) error {
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := task.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("startup task failed", "task", task.Name(), "error", err)
		}
	}
	return nil
}
