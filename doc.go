/*
Package semop dispatches semantic operations to the handlers able to serve them.

Callers invoke abstract operators (apply, resolve, cast, select, equals, ...)
against arbitrary values. Each call is normalized into a Request, offered to
value types that handle the operator themselves and to registered backends,
in a deterministic order, until one of them finalizes an execution plan. The
plan is inspectable before it runs: every handler that touched it left a sign.

# Concept

Handlers form a chain of responsibility. Each one may decline, augment the
plan built so far, or finalize it. Backends declare dependencies on each other
and are sorted before every step, so a backend that refines completion plans
always runs after the backend that creates them.

Contexts, exemplars, strategies and guards live on a scoped stack and are
folded into the plan by dedicated backends. Guards replay the plan on sample
inputs before it executes.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/semop"
		"github.com/aretw0/semop/pkg/adapters/process"
		"github.com/aretw0/semop/pkg/ops"
	)

	func main() {
		model, err := process.New(process.Config{Name: "local", Command: "ollama", Args: []string{"run", "llama3"}, Format: process.FormatText})
		if err != nil {
			log.Fatal(err)
		}

		eng, err := semop.New(semop.WithCompleter(model))
		if err != nil {
			log.Fatal(err)
		}

		year, err := eng.Invoke(context.Background(), ops.Resolve, "the year of the moon landing", ops.Type[int]())
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(year)
	}
*/
package semop
