// Package attach orchestrates the full pipeline spec.md §2-§5 describes:
// open the PDF, probe its line metrics, build the document-wide caption
// index, select the best candidate per (kind, ident), vote on a global
// anchor direction, then anchor-select and refine each chosen caption
// across a bounded worker pool of pages, and finally emit and prune the
// index. Nothing here runs concurrently except the per-page fan-out named
// in spec.md §5; caption indexing and index emission are single-threaded.
package attach

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/tsawler/attachcore/anchor"
	"github.com/tsawler/attachcore/backend"
	"github.com/tsawler/attachcore/caption"
	"github.com/tsawler/attachcore/config"
	"github.com/tsawler/attachcore/debugviz"
	"github.com/tsawler/attachcore/docmetrics"
	"github.com/tsawler/attachcore/layoutmodel"
	"github.com/tsawler/attachcore/model"
	"github.com/tsawler/attachcore/refine"
	"github.com/tsawler/attachcore/render"
	"github.com/tsawler/attachcore/runindex"
	"github.com/tsawler/attachcore/runlog"
)

// Version is copied onto every record's meta.extractor_version.
const Version = "0.1.0"

// Runner holds one open document and its document-wide metrics, ready to
// process one or more times with different output directories/configs.
type Runner struct {
	doc   *backend.Document
	probe docmetrics.Metrics
}

// pdfHash returns the hex-encoded sha256 of the file at path, for the
// run-wide meta.pdf_hash every record carries.
func pdfHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Open opens path and probes its line metrics, per spec.md §4.1-§4.2. The
// returned *Runner owns doc until Close is called.
func Open(path string) (*Runner, error) {
	doc, err := backend.Open(path)
	if err != nil {
		return nil, err
	}
	probe, err := docmetrics.Probe(doc)
	if err != nil {
		doc.Close()
		return nil, err
	}
	return &Runner{doc: doc, probe: probe}, nil
}

// Close releases the underlying document.
func (r *Runner) Close() error { return r.doc.Close() }

// Metrics exposes the document's probed line metrics, e.g. for a caller
// that wants to build config.Config with adaptive defaults before
// calling Run.
func (r *Runner) Metrics() docmetrics.Metrics { return r.probe }

// Result is the outcome of one complete run.
type Result struct {
	Records     []model.AttachmentRecord
	Uncertain   []caption.Uncertain
	PrunedFiles []string
	Log         runlog.Log
}

// pageCache memoizes one page's text lines/drawings/images, built once per
// page regardless of how many captions land on it.
type pageCache struct {
	mu    sync.Mutex
	pages map[int]*cachedPage
	doc   *backend.Document
}

type cachedPage struct {
	page     *backend.Page
	lines    []model.TextLine
	drawings []model.DrawingObject
	images   []model.ImageRect
	err      error
}

func newPageCache(doc *backend.Document) *pageCache {
	return &pageCache{pages: make(map[int]*cachedPage), doc: doc}
}

func (pc *pageCache) get(num int) *cachedPage {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if cp, ok := pc.pages[num]; ok {
		return cp
	}
	cp := &cachedPage{}
	pg, err := pc.doc.Page(num)
	if err != nil {
		cp.err = err
		pc.pages[num] = cp
		return cp
	}
	cp.page = pg
	if cp.lines, err = pg.TextLines(); err != nil {
		cp.err = err
	}
	if cp.drawings, err = pg.Drawings(); err != nil && cp.err == nil {
		cp.err = err
	}
	if cp.images, err = pg.ImageRects(); err != nil && cp.err == nil {
		cp.err = err
	}
	pc.pages[num] = cp
	return cp
}

// Run executes the full pipeline and writes index.json and run.log.jsonl
// to outDir, pruning stale output files afterward (manifest.csv is left
// to the caller, via runindex.WriteCSV). It
// returns an *errs.InputError or *errs.IndexWriteError only for the two
// conditions spec.md §7 marks fatal; every other failure mode is recorded
// per-attachment in Result.Records' StagesApplied/Confidence and in Log.
func (r *Runner) Run(cfg config.Config, outDir string) (Result, error) {
	log := runlog.New()

	hash, err := pdfHash(r.doc.Path())
	if err != nil {
		log = log.Warnf("meta", 0, "", "pdf hash failed: %v", err)
	}
	meta := model.AttachmentMeta{
		PDFName:          filepath.Base(r.doc.Path()),
		PDFHash:          hash,
		PageCount:        r.doc.PageCount(),
		ExtractorVersion: Version,
		Preset:           cfg.Preset,
	}
	layout := model.AttachmentLayout{
		Columns:           r.probe.Columns,
		TypicalLineHeight: r.probe.TypicalLineHeight,
	}

	candidates, err := caption.BuildIndex(r.doc)
	if err != nil {
		return Result{}, err
	}
	captions, uncertain := caption.Select(candidates, cfg.AllowContinued)
	for _, u := range uncertain {
		log = log.Warnf("uncertain_caption", u.Page, u.Ident.String(), "best score %.1f below threshold", u.Best)
	}

	pages := newPageCache(r.doc)
	byPage := make(map[int][]model.Caption)
	for _, c := range captions {
		byPage[c.Page()] = append(byPage[c.Page()], c)
	}

	anchorCfg := cfg.AsAnchorConfig()
	contexts := make(map[int]anchor.PageContext, len(byPage))
	for pageNum, caps := range byPage {
		cp := pages.get(pageNum)
		if cp.err != nil {
			log = log.Warnf("render", pageNum, "", "page load failed: %v", cp.err)
			continue
		}
		var lm *layoutmodel.Page
		if cfg.LayoutDriven != "off" {
			lm, err = layoutmodel.Build(r.doc, pageNum)
			if err != nil {
				if cfg.LayoutDriven == "on" {
					log = log.Warnf("layout_model", pageNum, "", "layout model unavailable: %v", err)
				}
				lm = nil
			}
		}

		contexts[pageNum] = anchor.PageContext{
			Rect:     cp.page.Rect(),
			Lines:    cp.lines,
			Drawings: cp.drawings,
			Images:   cp.images,
			Captions: caps,
			Layout:   lm,
		}
	}

	votes := anchor.GlobalVote(anchorCfg, contexts, captions)
	runID := log.RunID()

	type job struct {
		idx int
		cap model.Caption
	}
	type outcome struct {
		record model.AttachmentRecord
		log    []runlog.Entry
	}

	jobs := make(chan job, len(captions))
	results := make([]outcome, len(captions))
	resultsOK := make([]bool, len(captions))
	for i, c := range captions {
		jobs <- job{idx: i, cap: c}
	}
	close(jobs)

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if workers > len(captions) {
		workers = len(captions)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	usedNames := make(map[string]bool)
	// One lock per page: captions on the same page run one at a time, so
	// workers only run concurrently across pages.
	pageLocks := make(map[int]*sync.Mutex, len(byPage))
	for pageNum := range byPage {
		pageLocks[pageNum] = &sync.Mutex{}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				cap := j.cap
				idx := j.idx
				pageLocks[cap.Page()].Lock()
				rec, entries := r.processCaption(cfg, anchorCfg, cap, contexts[cap.Page()], pages, votes, outDir, runID, meta, layout, &mu, usedNames)
				pageLocks[cap.Page()].Unlock()
				results[idx] = outcome{record: rec, log: entries}
				resultsOK[idx] = true
			}
		}()
	}
	wg.Wait()

	var records []model.AttachmentRecord
	for i, ok := range resultsOK {
		if !ok {
			continue
		}
		for _, e := range results[i].log {
			log = log.With(e)
		}
		if results[i].record.File != "" {
			records = append(records, results[i].record)
		}
	}

	runindex.Sort(records)
	if err := runindex.Write(outDir, records); err != nil {
		return Result{Records: records, Uncertain: uncertain, Log: log}, err
	}

	var pruned []string
	if cfg.PruneImages {
		pruned, err = runindex.Prune(outDir, records)
		if err != nil {
			log = log.Warnf("prune", 0, "", "prune failed: %v", err)
		}
	}

	_ = log.Write(outDir)

	return Result{Records: records, Uncertain: uncertain, PrunedFiles: pruned, Log: log}, nil
}

// processCaption runs anchor selection, refinement, and rendering for one
// caption, returning the record to emit (zero File on total failure) and
// any log entries produced along the way. It never returns an error: an
// unavailable page or a PNG write failure is recorded as a warning and the
// caption is skipped, a refinement failure falls back to the baseline
// window, and a degenerate anchor is emitted with stages_applied
// ["baseline-empty"], matching spec.md §7's "a single attachment failing
// acceptance... the run still succeeds".
func (r *Runner) processCaption(
	cfg config.Config,
	anchorCfg anchor.Config,
	cap model.Caption,
	pc anchor.PageContext,
	pages *pageCache,
	votes map[model.AttachmentKind]anchor.Vote,
	outDir, runID string,
	meta model.AttachmentMeta,
	layout model.AttachmentLayout,
	mu *sync.Mutex,
	usedNames map[string]bool,
) (model.AttachmentRecord, []runlog.Entry) {
	var entries []runlog.Entry
	warn := func(kind, msg string, args ...any) {
		entries = append(entries, runlog.Entry{Severity: runlog.SeverityWarning, Kind: kind, Page: cap.Page(), Ident: cap.Ident().String(), Message: fmt.Sprintf(msg, args...)})
	}

	cp := pages.get(cap.Page())
	if cp.err != nil {
		warn("render", "page unavailable: %v", cp.err)
		return model.AttachmentRecord{}, entries
	}

	choice := anchor.Select(anchorCfg, cap, pc, votes[cap.Kind()])

	var result model.RefinementResult
	if choice.Degenerate {
		result = model.RefinementResult{Rect: choice.BaselineRect, Stage: model.StageBaseline, StagesApplied: []string{"baseline-empty"}}
	} else {
		refineCfg := cfg.AsRefineConfig(r.probe.TypicalLineHeight)
		refineCfg.Layout = pc.Layout
		var err error
		result, err = refine.Run(refineCfg, cp.page, choice, pc.Lines, pc.Drawings, pc.Images)
		if err != nil {
			warn("render", "refinement failed, using baseline: %v", err)
			result = model.RefinementResult{Rect: choice.BaselineRect, Stage: model.StageBaseline, StagesApplied: []string{"baseline", "baseline-fallback"}}
		}
	}

	mu.Lock()
	base := render.FileName(cap.Kind(), cap.Ident(), cap.Text(), cap.Continued, cap.Page())
	name, collided := render.ResolveCollision(base, usedNames)
	usedNames[name] = true
	mu.Unlock()
	if collided {
		warn("naming_collision", "renamed to %s", name)
	}

	path := filepath.Join(outDir, name)
	if err := render.PNG(cp.page, cfg.DPI, result.Rect, path); err != nil {
		warn("render", "png write failed: %v", err)
		return model.AttachmentRecord{}, entries
	}

	var debugArtifacts []string
	if cfg.Debug {
		stages := debugviz.StagesFromTrace(choice.BaselineRect, result)
		artifacts, err := debugviz.Overlay(cp.page, outDir, runID, cap.Kind(), cap.Ident().String(), stages, cap.Rect(), pc.Layout)
		if err != nil {
			warn("debug_viz", "overlay failed: %v", err)
		} else {
			debugArtifacts = artifacts
		}
	}

	rec := model.AttachmentRecord{
		Kind:             cap.Kind(),
		Ident:            cap.Ident(),
		Page:             cap.Page(),
		CaptionText:      cap.Text(),
		File:             name,
		Continued:        cap.Continued,
		Meta:             meta,
		Layout:           layout,
		AnchorMode:       anchorCfg.Mode,
		Side:             choice.Side,
		GlobalAnchorUsed: choice.GlobalVoted,
		StagesApplied:    result.StagesApplied,
		Confidence:       cap.Candidate.TotalScore,
		BBoxPt:           result.Rect,
		DPI:              cfg.DPI,
		PixmapWidthPx:    int(result.Rect.Width()*float64(cfg.DPI)/72.0 + 0.5),
		PixmapHeightPx:   int(result.Rect.Height()*float64(cfg.DPI)/72.0 + 0.5),
		DebugArtifacts:   debugArtifacts,
	}
	return rec, entries
}
