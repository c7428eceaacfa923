// Package ingest adds plain-text and HTML files to a corpus as new
// documents. Document IDs are monotonic ULIDs so keyset paging visits
// documents in ingestion order.
package ingest
