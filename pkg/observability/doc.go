/*
Package observability turns runtime lifecycle hooks into Prometheus metrics.

Metrics registers its collectors on a caller-provided Registerer and exposes the
hooks that feed them, so it plugs into a System through WithLifecycleHooks:

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	s := conduit.New(conduit.WithLifecycleHooks(m.Hooks()))
*/
package observability
