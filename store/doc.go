// Package store provides a generic entity store with uniform loading and
// error semantics.
//
// A Store holds a list of items, a loading flag and the last recorded error.
// Work runs through ExecuteAction (or Execute for typed results), which moves
// the store through idle, loading and errored states, classifies failures
// through an errors.Handler and optionally clears recorded errors after a
// timeout. ExecuteActionWithRetry adds exponential backoff for retryable
// failures.
//
// Feature stores compose a Store rather than extend it. Collection is the
// common case: a Store of entities backed by a Provider, plus a selection.
//
//	projects := store.NewCollection[Project](provider, store.WithName("ProjectsStore"))
//	if err := projects.Load(ctx); err != nil {
//	    fmt.Println(projects.UserErrorMessage())
//	}
//	active := projects.Filter(func(p Project) bool { return p.Active })
package store
