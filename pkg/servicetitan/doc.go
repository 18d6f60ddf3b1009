// Package servicetitan provides types, interfaces, and helpers for working with
// the ServiceTitan v2 REST API.
//
// # Overview
//
// The servicetitan package defines the credential bundle, the URL layout
// shared by every resource, the page and report shapes returned by the API,
// the error taxonomy, and the client interfaces (Client, EndpointClient,
// ReportSession, ReportsClient, DataClient). The concrete implementation is
// wired by the stclient package; most consumers import stclient to construct
// a client and then work through these interfaces.
//
// Getting a client
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
//	  cli, err := stclient.Connect(ctx, servicetitan.ResolveOptions{ConfigFile: "servicetitan_config.json"})
//	  if err != nil { log.Fatal(err) }
//
//	  jobs, err := cli.Endpoint("jpm", "jobs").GetAll(ctx, servicetitan.NewQuery().With("jobStatus", "Completed"), "", "")
//	  if err != nil { log.Fatal(err) }
//	  _ = jobs
//	}
//
// # Credentials
//
// ResolveCredentials merges explicit values, a JSON credential file and the
// SERVICETITAN_* environment variables. The environment is only read when a
// required field is still missing after the first two sources.
//
// # Queries and pagination
//
// Query is immutable: With, WithPage and WithPageSize return copies, so a
// query passed to GetAll is never modified by the pagination loop. List
// endpoints paginate by page number and hasMore; export endpoints paginate
// by an opaque continueFrom cursor.
//
// # Errors
//
// Configuration problems are reported as *ConfigError, token failures as
// *AuthError, and non-2xx responses as *HTTPError. IsNotFound, IsUnauthorized,
// IsForbidden, IsRateLimited and IsServerError branch on the common cases.
//
// # Caching
//
// The Cache abstraction holds slow-changing reference data such as report
// metadata. Memory, NATS JetStream KV and Redis backends are provided, and
// CacheChain layers them. Access tokens are kept in process memory only.
package servicetitan
