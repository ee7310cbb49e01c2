/*
Package observability turns dispatch lifecycle events into metrics, trace
events and log records.

Every constructor returns a domain.LifecycleHooks value; Combine merges several
of them so an engine can feed all sinks at once:

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal(err)
	}
	hooks := observability.Combine(metrics.Hooks(), observability.Tracing(), observability.Logging(logger))
	eng, err := semop.New(semop.WithLifecycleHooks(hooks))
*/
package observability
