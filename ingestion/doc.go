// Package ingestion turns upstream master data into drug documents and
// vocabulary terms and persists them.
//
// A drug starts as an SIS master record. Its packages, active substances and
// short texts come from the ACO compendium, which answers with one record
// per pack. The Pipeline assembles both, concurrently on a worker pool, and
// upserts the result. Records that fail are logged and counted; they do not
// stop the import.
package ingestion
