// Package httpapi is the request gateway: it validates untrusted run
// requests, hands them to the pipeline service, and serves read-only views of
// the job store.
package httpapi
