package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/shardcount"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [name]",
		Short: "Prints the counter's total",
		Args:  cobra.ExactArgs(1),
		RunE: withCounter(envOptions{}, func(ctx context.Context, cmd *cobra.Command, c shardcount.Counter, _ []string) error {
			nocache, _ := cmd.Flags().GetBool("nocache")
			v, err := c.Count(ctx, nocache)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}),
	}
	incCmd = &cobra.Command{
		Use:   "inc [name]",
		Short: "Adds to the counter (negative values subtract)",
		Args:  cobra.ExactArgs(1),
		RunE: withCounter(envOptions{}, func(ctx context.Context, cmd *cobra.Command, c shardcount.Counter, _ []string) error {
			by, _ := cmd.Flags().GetInt64("by")
			committed, err := c.Increment(ctx, by)
			return report(cmd, "inc", committed, err)
		}),
	}
	decCmd = &cobra.Command{
		Use:   "dec [name]",
		Short: "Subtracts one from the counter",
		Args:  cobra.ExactArgs(1),
		RunE: withCounter(envOptions{}, func(ctx context.Context, cmd *cobra.Command, c shardcount.Counter, _ []string) error {
			committed, err := c.Decrement(ctx)
			return report(cmd, "dec", committed, err)
		}),
	}
	setCmd = &cobra.Command{
		Use:   "set [name] [value]",
		Short: "Moves the counter to value",
		Args:  cobra.ExactArgs(2),
		RunE: withCounter(envOptions{}, func(ctx context.Context, cmd *cobra.Command, c shardcount.Counter, args []string) error {
			value, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("value must be a number: %w", err)
			}
			committed, err := c.SetCount(ctx, value)
			return report(cmd, "set", committed, err)
		}),
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [name]",
		Short: "Removes every shard, the delayed buffer and the cached total",
		Args:  cobra.ExactArgs(1),
		RunE: withCounter(envOptions{}, func(ctx context.Context, cmd *cobra.Command, c shardcount.Counter, _ []string) error {
			if err := c.Delete(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		}),
	}
)

func init() {
	getCmd.Flags().Bool("nocache", false, wrapString("Rescan all shards instead of reading the cached total"))
	incCmd.Flags().Int64("by", 1, wrapString("Amount to add"))
}

func report(cmd *cobra.Command, op string, committed bool, err error) error {
	if err != nil {
		return err
	}
	if committed {
		fmt.Fprintf(cmd.OutOrStdout(), "%s committed\n", op)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s deferred (applied with the next successful write)\n", op)
	}
	return nil
}
