/*
Package observability turns pipeline lifecycle hooks into outputs other
processes can watch.

  - Metrics: Prometheus counters, a stage latency histogram and an
    in-flight gauge.
  - Broadcaster: fan-out of request updates to live subscribers, used by the
    HTTP event stream and the solve command.

Both are plain hook sets; combine them with domain.Combine and pass the
result to the pipeline.
*/
package observability
