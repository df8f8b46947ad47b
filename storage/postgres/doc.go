// Package postgres implements the storage repositories on PostgreSQL with the
// pgvector extension.
//
// Similarity is computed in the database as 1 - (embedding <=> query), the
// cosine similarity. The year and threshold predicates run in SQL; ties are
// broken by id so results are stable across calls.
//
// Article IDs are unsigned 64-bit values stored in a bigint column. They are
// stored with the sign bit flipped so that SQL ordering matches unsigned order.
package postgres
