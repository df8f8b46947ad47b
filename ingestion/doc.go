// Package ingestion turns scraped articles into stored, searchable records.
//
// The Pipeline runs each article through normalization, rule classification,
// embedding (through the embedding cache) and optional ML prediction, then
// upserts the batch. Articles are processed concurrently on a bounded worker
// pool. Article IDs are derived from content, so re-ingesting the same input
// rewrites the same rows with the same values.
package ingestion
