package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/semop"
	"github.com/aretw0/semop/internal/logging"
	"github.com/aretw0/semop/pkg/adapters/memory"
	"github.com/aretw0/semop/pkg/adapters/process"
	"github.com/aretw0/semop/pkg/adapters/redis"
	"github.com/aretw0/semop/pkg/contextpack"
	"github.com/aretw0/semop/pkg/ports"
	"github.com/aretw0/semop/pkg/prompts"
	"github.com/spf13/viper"
)

// EchoCompleter names the builtin completer that answers with the last user message.
const EchoCompleter = "echo"

func newLogger(v *viper.Viper) (*slog.Logger, error) {
	level, err := logging.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{Level: level, JSON: v.GetBool("log-json")}), nil
}

func newCompleter(v *viper.Viper, logger *slog.Logger) (ports.Completer, error) {
	name := v.GetString("completer")
	switch name {
	case "":
		return nil, nil
	case EchoCompleter:
		return memory.NewCompleter(memory.WithEcho()), nil
	}

	path := v.GetString("completers")
	configs, err := process.LoadConfigs(path)
	if err != nil {
		return nil, err
	}
	cfg, ok := configs[name]
	if !ok {
		return nil, fmt.Errorf("completer %q is not defined in %s", name, path)
	}
	return process.New(cfg, process.WithBaseDir(filepath.Dir(path)), process.WithLogger(logger))
}

// newEngine builds the engine described by the settings. The returned cleanup
// closes the scope holding the context packs and the cache connection.
func newEngine(v *viper.Viper, extra ...semop.Option) (*semop.Engine, func(), error) {
	logger, err := newLogger(v)
	if err != nil {
		return nil, nil, err
	}

	lib, err := prompts.Builtin()
	if err != nil {
		return nil, nil, err
	}
	if dir := v.GetString("prompts"); dir != "" {
		if err := lib.LoadDir(dir); err != nil {
			return nil, nil, err
		}
	}

	order, err := semop.ParseBackendOrder(v.GetString("order"))
	if err != nil {
		return nil, nil, err
	}

	opts := []semop.Option{
		semop.WithLogger(logger),
		semop.WithLibrary(lib),
		semop.WithPolicy(semop.Policy{Order: order, BackendsFirst: v.GetBool("backends-first")}),
	}

	completer, err := newCompleter(v, logger)
	if err != nil {
		return nil, nil, err
	}
	if completer != nil {
		opts = append(opts, semop.WithCompleter(completer))
	}

	var cache *redis.Cache
	if addr := v.GetString("redis-addr"); addr != "" {
		cache = redis.New(addr, v.GetString("redis-password"), v.GetInt("redis-db"), redis.WithTTL(v.GetDuration("cache-ttl")))
		opts = append(opts, semop.WithCache(cache))
	}
	closeCache := func() {
		if cache == nil {
			return
		}
		if err := cache.Close(); err != nil {
			logger.Warn("failed to close redis cache", "err", err)
		}
	}

	eng, err := semop.New(append(opts, extra...)...)
	if err != nil {
		closeCache()
		return nil, nil, err
	}

	var packs []*contextpack.Pack
	for _, path := range v.GetStringSlice("pack") {
		pack, err := contextpack.Load(path)
		if err != nil {
			closeCache()
			return nil, nil, err
		}
		packs = append(packs, pack)
	}
	handle := eng.Scopes().Enter(contextpack.Merge(packs...)...)
	logger.Debug("engine ready", "backends", len(eng.Backends()), "packs", len(packs), "completer", v.GetString("completer"))

	cleanup := func() {
		eng.Scopes().Exit(handle)
		closeCache()
	}
	return eng, cleanup, nil
}
