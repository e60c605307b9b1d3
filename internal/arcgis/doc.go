// Package arcgis talks to the ArcGIS Server REST and admin APIs needed to
// publish service definition files: token generation, item upload, the
// "Publish Service Definition" geoprocessing job and its status.
//
// A Client is bound to a single site context URL and token for its whole
// lifetime and satisfies publish.Uploader, publish.Submitter and
// publish.Poller.
package arcgis
