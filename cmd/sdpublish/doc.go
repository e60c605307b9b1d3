// Package main hosts the sdpublish CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, then hands the heavy
// lifting to internal packages: discovery finds artifacts, arcgis talks to
// the site, publish runs the upload/submit/poll pipeline and journal keeps
// the run history that history, show and retry read back.
//
// Commands stay thin. New behaviour belongs in an internal package first and
// is surfaced here as a command or flag.
package main
