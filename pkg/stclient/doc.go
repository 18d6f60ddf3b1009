// Package stclient provides the primary entry point for constructing a
// ServiceTitan API client that implements the servicetitan.Client interface.
//
// It layers credential resolution, HTTP transport, token management and rate
// limiting on top of the types and interfaces defined in the servicetitan
// package. Most applications call Connect, then use the returned client's
// Endpoint, OpenReport, Reports and Data accessors.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
//	  "github.com/fivetwenty-io/servicetitan-client/pkg/stclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // Credentials come from servicetitan_config.json, falling back to
//	  // SERVICETITAN_* environment variables for anything missing.
//	  cli, err := stclient.Connect(ctx, servicetitan.ResolveOptions{
//	    ConfigFile: "servicetitan_config.json",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  jobs := cli.Endpoint("jpm", "jobs")
//	  all, err := jobs.GetAll(ctx, servicetitan.NewQuery().With("jobStatus", "Completed"), "", "")
//	  if err != nil { log.Fatal(err) }
//	  _ = all
//	}
//
// # Reports
//
// OpenReport fetches a report's metadata and returns a session. Parameters
// are added with AddParam and GetAllData pages through the results, raising
// the page size or giving up when the report would take longer than its
// time budget.
//
// # Options
//
// Connect accepts Options such as WithLogger, WithCache, WithRateLimitRetryMax
// and WithRequestsPerSecond. New takes a complete servicetitan.Config instead.
package stclient
