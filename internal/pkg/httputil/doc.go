// Package httputil provides small helpers for writing JSON HTTP responses
// in the API's standard envelope: {"success":true,"data":...} on success
// and {"success":false,"message":"..."} on failure.
package httputil
