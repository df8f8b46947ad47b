// Package reembed backfills and refreshes article embeddings.
//
// A run walks stored articles in ID order, in batches, and embeds each one. By
// default embeddings come from the embedding cache, so only texts never seen
// before reach the provider; a refresh run calls the provider directly and
// overwrites stored vectors, which is what a model change needs. A run can be
// limited to articles that have no embedding yet.
//
// Failed provider and store calls are retried with exponential backoff when the
// error is retryable. Progress is checkpointed after every batch so an
// interrupted run resumes where it stopped.
package reembed
