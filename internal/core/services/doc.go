// Package services implements the core application logic: the corpus
// search service built over the inverted index, and the session service
// for message-level drill-down reads.
package services
