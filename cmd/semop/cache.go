package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/semop/pkg/adapters/redis"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func openCache(v *viper.Viper) (*redis.Cache, error) {
	addr := v.GetString("redis-addr")
	if addr == "" {
		return nil, errors.New("cache commands need --redis-addr")
	}
	return redis.New(addr, v.GetString("redis-password"), v.GetInt("redis-db"), redis.WithTTL(v.GetDuration("cache-ttl"))), nil
}

func newCacheCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the Redis completion cache",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the keys of cached completions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(v)
			if err != nil {
				return err
			}
			defer cache.Close()

			keys, err := cache.Keys(cmd.Context())
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached completion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(v)
			if err != nil {
				return err
			}
			defer cache.Close()

			n, err := cache.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached completions\n", n)
			return nil
		},
	}

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}
