// Package server exposes the poster pipeline over HTTP.
//
// Requests create asynchronous jobs tracked in a [jobs.Registry]. A bounded
// number of workers run the pipeline; clients poll the job for progress and
// download the finished posters by index.
//
// # Routes
//
//	GET  /                               HTML form
//	GET  /api/themes                     theme list
//	POST /api/posters                    create a job, 202 {"id": ...}
//	GET  /api/posters/{id}               job status
//	POST /api/posters/{id}/cancel        cancel a job
//	GET  /api/posters/{id}/files/{index} download a poster
//	GET  /api/posters/{id}/preview       PNG thumbnail of the first poster
//	GET  /api/posters/{id}/archive       zip of every poster
//	GET  /healthz                        liveness
//
// Errors are JSON objects {"error": message, "code": code} with the status
// chosen by [StatusFor].
package server
