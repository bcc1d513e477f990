// Package storage provides durable, typed key-value storage under a closed
// set of well-known keys.
//
// Values are JSON-encoded inside a versioned envelope that records when they
// were written and, optionally, when they expire. The bytes themselves live
// in a Medium: an FSMedium over any billy filesystem (in memory or on local
// disk) or a RedisMedium.
//
// Storage isolates callers from medium failures. A medium that fails the
// probe performed by New disables the instance for its whole lifetime, and
// every failure is reported through an errors.Handler rather than returned:
//
//	s := storage.New(ctx, storage.NewLocalMedium(dir), storage.WithHandler(h))
//	storage.Set(ctx, s, storage.KeyTheme, "dark")
//	theme, ok := storage.Get[string](ctx, s, storage.KeyTheme)
package storage
