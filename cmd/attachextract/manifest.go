package main

import (
	"github.com/tsawler/attachcore/attach"
	"github.com/tsawler/attachcore/runindex"
)

func writeManifest(outDir string, result attach.Result) error {
	return runindex.WriteCSV(outDir, result.Records)
}
