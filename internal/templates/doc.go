// Package templates loads and renders custom service configuration
// templates.
//
// A template source is either a local path or an s3://bucket/key URL. The
// text is rendered with text/template and the sprig function library
// against [Data], which exposes the service name, the current host, the
// service's custom parameters and its backends.
package templates
