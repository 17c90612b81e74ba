// Package services installs, configures and controls the supported
// infrastructure services on remote hosts.
//
// Each service kind has a [Driver]: [CacheServer] (memcached), [KVStore]
// (redis), [LoadBalancer] (haproxy) and [ReverseProxy] (nginx). Drivers run
// their steps once per configured host through a remote.Executor, so the
// current host and backend are read from the context rather than passed
// around.
//
// Configuration text is produced by pure Render functions from typed
// parameter structs, which makes the generated files easy to test without
// any remote side. A service's custom_config_template, when present,
// replaces the generated file entirely.
package services
