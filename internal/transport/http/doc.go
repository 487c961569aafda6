// Package http contains the HTTP handlers for the dashboard API:
// dataset upload and listing, dashboard retrieval, record paging,
// CSV and XLSX export, and the health endpoint.
package http
