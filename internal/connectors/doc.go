// Package connectors holds the sources files are uploaded from besides
// direct uploads. The filesystem connector scans a folder and reports
// changes to it; the watch adapter turns those changes into ingests.
package connectors
