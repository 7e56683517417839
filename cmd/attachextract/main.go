// Command attachextract runs the attachment-extraction core over one PDF,
// per SPEC_FULL.md §0.4: a thin pflag wrapper that loads config.Config and
// calls attach.Open(path).Run(outDir). No extraction logic lives here.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/tsawler/attachcore/attach"
	"github.com/tsawler/attachcore/config"
)

var version = "dev"

func main() {
	fs := pflag.NewFlagSet("attachextract", pflag.ExitOnError)
	config.BindFlags(fs)
	outDir := fs.String("output-dir", "", "directory to write PNGs and index.json into")
	csv := fs.Bool("csv", false, "also write manifest.csv")
	showVersion := fs.BoolP("version", "v", false, "print version and exit")
	fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("attachextract %s\n", version)
		return
	}

	args := fs.Args()
	if len(args) != 1 || *outDir == "" {
		log.Fatal("usage: attachextract --output-dir DIR <pdf_path>")
	}
	pdfPath := args[0]

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}

	runner, err := attach.Open(pdfPath)
	if err != nil {
		log.Fatalf("open %s: %v", pdfPath, err)
	}
	defer runner.Close()

	probe := runner.Metrics()
	cfg, err := config.Build(fs, &probe)
	if err != nil {
		log.Fatalf("build config: %v", err)
	}

	result, err := runner.Run(cfg, *outDir)
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	for _, u := range result.Uncertain {
		log.Printf("uncertain caption skipped: %s %s (page %d, score %.1f)", u.Kind, u.Ident.String(), u.Page, u.Best)
	}
	log.Printf("wrote %d attachments to %s", len(result.Records), *outDir)

	if *csv {
		if err := writeManifest(*outDir, result); err != nil {
			log.Printf("manifest.csv: %v", err)
		}
	}
}
