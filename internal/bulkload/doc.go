// Package bulkload implements the bulkload command: it streams a JSON-lines file into a
// bulkwrite store through an asyncexecutor.Executor and prints a summary when done.
//
// Every input line is one JSON object. Its "_type" member, if present, selects the record type,
// otherwise the configured default type is used. Lines can be validated against a JSON schema
// and the producer can be throttled to a fixed rate.
package bulkload
