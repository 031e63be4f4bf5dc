// Package extractors provides implementations of the Extractor interface
// for the file formats users upload. Each extractor knows how to pull plain
// text out of a specific family of MIME types.
//
// Extractors are registered with the Registry at startup.
package extractors
