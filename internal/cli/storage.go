package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmgilman/go/statekit/errors"
	"github.com/jmgilman/go/statekit/storage"
)

// NewStorageCommand creates the storage command and its subcommands.
func NewStorageCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect and modify persistent storage",
		Long: `Read and write values under the well-known storage keys using the
configured backend (memory, local or redis).`,
	}

	cmd.AddCommand(newStorageGetCommand(rootOpts))
	cmd.AddCommand(newStorageSetCommand(rootOpts))
	cmd.AddCommand(newStorageRemoveCommand(rootOpts))
	cmd.AddCommand(newStorageKeysCommand(rootOpts))
	cmd.AddCommand(newStorageUsageCommand(rootOpts))
	cmd.AddCommand(newStorageClearCommand(rootOpts))

	return cmd
}

func newStorageGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(rootOpts, cmd, func(ctx context.Context, e *env, s *storage.Storage) error {
				key, err := parseKey(args[0])
				if err != nil {
					return err
				}
				v, ok := storage.Get[json.RawMessage](ctx, s, key)
				if !ok {
					return fmt.Errorf("no value stored under %s", key)
				}
				return e.out.Print(v, string(v))
			})
		},
	}
}

func newStorageSetCommand(rootOpts *RootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "set <key> <json-value>",
		Short: "Store a JSON value under a key",
		Long: `Store a JSON value under a key. Values that are not valid JSON are
stored as strings.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(rootOpts, cmd, func(ctx context.Context, e *env, s *storage.Storage) error {
				key, err := parseKey(args[0])
				if err != nil {
					return err
				}

				var value any = args[1]
				if json.Valid([]byte(args[1])) {
					value = json.RawMessage(args[1])
				}

				var opts []storage.SetOption
				if cmd.Flags().Changed("ttl") {
					opts = append(opts, storage.WithTTL(ttl))
				}
				if !storage.Set(ctx, s, key, value, opts...) {
					return fmt.Errorf("failed to store %s", key)
				}
				e.out.Printf("stored %s", key)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 0, "expire the value after this duration")
	return cmd
}

func newStorageRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <key>",
		Aliases: []string{"remove"},
		Short:   "Remove the value stored under a key",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(rootOpts, cmd, func(ctx context.Context, e *env, s *storage.Storage) error {
				key, err := parseKey(args[0])
				if err != nil {
					return err
				}
				if !s.Remove(ctx, key) {
					return fmt.Errorf("failed to remove %s", key)
				}
				e.out.Printf("removed %s", key)
				return nil
			})
		},
	}
}

func newStorageKeysCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(rootOpts, cmd, func(ctx context.Context, e *env, s *storage.Storage) error {
				keys := s.Keys(ctx)
				return e.out.Print(keys, strings.Join(keys, "\n"))
			})
		},
	}
}

func newStorageUsageCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show the approximate storage footprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(rootOpts, cmd, func(ctx context.Context, e *env, s *storage.Storage) error {
				u := s.Usage(ctx)
				text := fmt.Sprintf("available: %t\nkeys: %d\nbytes: %d", u.Available, u.Keys, u.Bytes)
				return e.out.Print(u, text)
			})
		},
	}
}

func newStorageClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(rootOpts, cmd, func(ctx context.Context, e *env, s *storage.Storage) error {
				if !s.Clear(ctx) {
					return fmt.Errorf("failed to clear storage")
				}
				e.out.Printf("cleared")
				return nil
			})
		},
	}
}

// withStorage builds the configured storage and runs fn with it, closing the
// medium afterwards when it holds resources.
func withStorage(rootOpts *RootOptions, cmd *cobra.Command, fn func(context.Context, *env, *storage.Storage) error) error {
	e, err := setup(rootOpts, cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, medium, err := e.cfg.NewStorage(ctx, e.handler, e.logger)
	if err != nil {
		return err
	}
	if c, ok := medium.(io.Closer); ok {
		defer c.Close()
	}
	if !s.Available() {
		return errors.Wrap(storage.ErrUnavailable, errors.CodeStorageNotAvailable, "Storage is not available")
	}
	return fn(ctx, e, s)
}

func parseKey(name string) (storage.Key, error) {
	key, ok := storage.ParseKey(name)
	if ok {
		return key, nil
	}
	names := make([]string, 0, len(storage.AllKeys()))
	for _, k := range storage.AllKeys() {
		names = append(names, k.String())
	}
	return storage.Key{}, errors.Newf(errors.CodeInvalidInput,
		"unknown key %q: must be one of %s", name, strings.Join(names, ", "))
}
