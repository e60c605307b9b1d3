// Package preflight provides readiness checks for the ArcGIS Server site
// and filesystem paths that sdpublish depends on.
//
// These checks run in two contexts:
//   - The publish command calls RunAll before queueing anything. If a check
//     fails the run stops before a single artifact is uploaded.
//   - The CLI "sdpublish check" command prints every result as a table.
package preflight
