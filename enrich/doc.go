// Package enrich derives search metadata for stored documents with a
// language model.
//
// A Job visits raw articles of the relevant section and raw drugs, asks an
// ai.MetadataExtractor for their metadata on a worker pool and attaches the
// result through the keywords package, which promotes each document to the
// enriched state. Documents whose extraction fails stay raw and are picked
// up by the next run.
package enrich
