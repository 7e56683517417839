// Package config builds the immutable [Config] value every other package
// is threaded through explicitly, layering compiled-in defaults, adaptive
// defaults derived from the document's own metrics, environment
// variables, and CLI flags, per spec.md §6 and SPEC_FULL.md §0.1.
package config

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tsawler/attachcore/anchor"
	"github.com/tsawler/attachcore/docmetrics"
	"github.com/tsawler/attachcore/refine"
)

// Config is the fully resolved, read-only set of knobs spec.md §6 names.
// Every field mirrors one entry of the config table; the anchor/refine
// sub-configs are built from it once, at startup, and never recomputed.
type Config struct {
	DPI         int
	ClipHeightPt float64
	MarginXPt   float64
	CaptionGapPt float64
	ScanHeights []float64
	ScanStepPt  float64
	ScanDistLambda float64
	CaptionMidGuardPt float64

	TextTrim          bool
	AdjacentThPt      float64
	FarTextThPt       float64
	FarSideMinDistPt  float64
	FarSideParaMinRatio float64

	ObjectPadPt       float64
	ObjectMinAreaRatio float64
	ObjectMergeGapPt  float64

	Autocrop            bool
	AutocropPadPx       int
	AutocropWhiteTh     int
	AutocropShrinkLimit float64
	AutocropMinHeightPx int
	ProtectFarEdgePx    float64
	NearEdgePadPx       float64
	RefineNearEdgeOnly  bool

	SmartCaptionDetection bool
	LayoutDriven          string // auto|on|off
	AdaptiveLineHeight    bool

	GlobalAnchor            string // auto|off
	GlobalAnchorMarginFigure float64
	GlobalAnchorMarginTable  float64

	AllowContinued bool
	AnchorMode     string // v1|v2

	PruneImages     bool
	ForceAboveIDs   []string
	ForceBelowIDs   []string
	ForceTableAboveIDs []string
	ForceTableBelowIDs []string

	MaxCaptionWords int
	Preset          string // robust|none

	Debug bool // write <out_dir>/debug/<run_id>/ stage overlays and legends
}

// BindFlags registers a pflag flag per config-table entry on fs, named
// exactly as in spec.md §6 with underscores replaced by hyphens.
func BindFlags(fs *pflag.FlagSet) {
	fs.Int("dpi", 300, "output render DPI")
	fs.Float64("clip-height-pt", 650, "baseline window height, points")
	fs.Float64("margin-x-pt", 20, "horizontal margin, points")
	fs.Float64("caption-gap-pt", 5, "gap kept between caption and window, points")
	fs.StringSlice("scan-heights", nil, "comma-separated scan heights, points")
	fs.Float64("scan-step-pt", 14, "V2 scan step, points")
	fs.Float64("scan-dist-lambda", 0.12, "V2 distance penalty weight (accepted but not read: V2 scoring uses a fixed 0.12)")
	fs.Float64("caption-mid-guard-pt", 6, "mid-line guard margin, points")

	fs.Bool("text-trim", true, "enable Phase A text trim")
	fs.Float64("adjacent-th-pt", 24, "A1 near-adjacent threshold, points")
	fs.Float64("far-text-th-pt", 300, "A2 mid-band upper bound, points")
	fs.Float64("far-side-min-dist-pt", 100, "A3 far-side minimum distance, points")
	fs.Float64("far-side-para-min-ratio", 0.20, "A3 paragraph-coverage threshold")

	fs.Float64("object-pad-pt", 8, "Phase B object padding, points")
	fs.Float64("object-min-area-ratio", 0.012, "Phase B minimum object area ratio (figures)")
	fs.Float64("object-merge-gap-pt", 6, "Phase B component merge gap, points")

	fs.Bool("autocrop", true, "enable Phase D whitespace autocrop")
	fs.Int("autocrop-pad-px", 30, "Phase D padding, pixels")
	fs.Int("autocrop-white-th", 250, "Phase D white threshold")
	fs.Float64("autocrop-shrink-limit", 0.30, "Phase D max area shrink fraction")
	fs.Int("autocrop-min-height-px", 80, "Phase D minimum height, pixels")
	fs.Float64("protect-far-edge-px", 14, "Phase D far-edge guard, pixels")
	fs.Float64("near-edge-pad-px", 32, "Phase D rejection regrow padding, pixels")
	fs.Bool("refine-near-edge-only", true, "Phase B only moves the near edge")

	fs.Bool("smart-caption-detection", true, "use the 4-axis caption scorer (accepted but not read: the scorer always runs)")
	fs.String("layout-driven", "on", "auto|on|off: use the optional layout model")
	fs.Bool("adaptive-line-height", true, "derive thresholds from the document's own metrics")

	fs.String("global-anchor", "auto", "auto|off: document-wide direction vote")
	fs.Float64("global-anchor-margin-figure", 0.02, "figure vote margin")
	fs.Float64("global-anchor-margin-table", 0.03, "table vote margin")

	fs.Bool("allow-continued", false, "allow multi-page continued captions")
	fs.String("anchor-mode", "v2", "v1|v2: anchor selection mode")

	fs.Bool("prune-images", true, "prune stale output files after index write")
	fs.StringSlice("force-above-ids", nil, "figure ids forced to anchor above")
	fs.StringSlice("force-below-ids", nil, "figure ids forced to anchor below")
	fs.StringSlice("force-table-above-ids", nil, "table ids forced to anchor above")
	fs.StringSlice("force-table-below-ids", nil, "table ids forced to anchor below")

	fs.Int("max-caption-words", 12, "filename slug word limit (accepted but not read: slugs use render.MaxCaptionWords, 12)")
	fs.String("preset", "robust", "robust|none: config preset")

	fs.Bool("debug", false, "write stage-overlay PNGs and legends under <out_dir>/debug/<run_id>/")
}

// Build resolves a [Config] from fs, applying the compiled defaults,
// environment variables (ATTACHCORE_ prefix), and the bound CLI flags, in
// the priority order SPEC_FULL.md §0.1 names. probe may be nil; when
// present and adaptive_line_height is set, its derived thresholds are
// re-applied as defaults before flags/env are read, so an explicit
// override still wins.
func Build(fs *pflag.FlagSet, probe *docmetrics.Metrics) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ATTACHCORE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := v.BindPFlags(fs); err != nil {
		return Config{}, err
	}

	if probe != nil && v.GetBool("adaptive-line-height") {
		adaptive := probe.Adaptive()
		v.SetDefault("adjacent-th-pt", adaptive.AdjacentTh)
		v.SetDefault("far-text-th-pt", adaptive.FarTextTh)
		v.SetDefault("far-side-min-dist-pt", adaptive.FarSideMinDist)
	}

	cfg := Config{
		DPI:                  v.GetInt("dpi"),
		ClipHeightPt:         v.GetFloat64("clip-height-pt"),
		MarginXPt:            v.GetFloat64("margin-x-pt"),
		CaptionGapPt:         v.GetFloat64("caption-gap-pt"),
		ScanHeights:          parseFloats(v.GetStringSlice("scan-heights")),
		ScanStepPt:           v.GetFloat64("scan-step-pt"),
		ScanDistLambda:       v.GetFloat64("scan-dist-lambda"),
		CaptionMidGuardPt:    v.GetFloat64("caption-mid-guard-pt"),

		TextTrim:            v.GetBool("text-trim"),
		AdjacentThPt:        v.GetFloat64("adjacent-th-pt"),
		FarTextThPt:         v.GetFloat64("far-text-th-pt"),
		FarSideMinDistPt:    v.GetFloat64("far-side-min-dist-pt"),
		FarSideParaMinRatio: v.GetFloat64("far-side-para-min-ratio"),

		ObjectPadPt:        v.GetFloat64("object-pad-pt"),
		ObjectMinAreaRatio: v.GetFloat64("object-min-area-ratio"),
		ObjectMergeGapPt:   v.GetFloat64("object-merge-gap-pt"),

		Autocrop:            v.GetBool("autocrop"),
		AutocropPadPx:       v.GetInt("autocrop-pad-px"),
		AutocropWhiteTh:     v.GetInt("autocrop-white-th"),
		AutocropShrinkLimit: v.GetFloat64("autocrop-shrink-limit"),
		AutocropMinHeightPx: v.GetInt("autocrop-min-height-px"),
		ProtectFarEdgePx:    v.GetFloat64("protect-far-edge-px"),
		NearEdgePadPx:       v.GetFloat64("near-edge-pad-px"),
		RefineNearEdgeOnly:  v.GetBool("refine-near-edge-only"),

		SmartCaptionDetection: v.GetBool("smart-caption-detection"),
		LayoutDriven:          v.GetString("layout-driven"),
		AdaptiveLineHeight:    v.GetBool("adaptive-line-height"),

		GlobalAnchor:             v.GetString("global-anchor"),
		GlobalAnchorMarginFigure: v.GetFloat64("global-anchor-margin-figure"),
		GlobalAnchorMarginTable:  v.GetFloat64("global-anchor-margin-table"),

		AllowContinued: v.GetBool("allow-continued"),
		AnchorMode:     v.GetString("anchor-mode"),

		PruneImages:        v.GetBool("prune-images"),
		ForceAboveIDs:      v.GetStringSlice("force-above-ids"),
		ForceBelowIDs:      v.GetStringSlice("force-below-ids"),
		ForceTableAboveIDs: v.GetStringSlice("force-table-above-ids"),
		ForceTableBelowIDs: v.GetStringSlice("force-table-below-ids"),

		MaxCaptionWords: v.GetInt("max-caption-words"),
		Preset:          v.GetString("preset"),

		Debug: v.GetBool("debug"),
	}
	return cfg, nil
}

func parseFloats(ss []string) []float64 {
	var out []float64
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// AsAnchorConfig builds the anchor package's Config from c, converting the
// per-id force slices into sets.
func (c Config) AsAnchorConfig() anchor.Config {
	return anchor.Config{
		MarginX:    c.MarginXPt,
		ClipHeight: c.ClipHeightPt,
		CaptionGap: c.CaptionGapPt,
		ScanHeights: c.ScanHeights,
		ScanStep:   c.ScanStepPt,
		DistLambda: c.ScanDistLambda,
		MidGuard:   c.CaptionMidGuardPt,
		Mode:       c.AnchorMode,

		ForceAboveIDs:      toSet(c.ForceAboveIDs),
		ForceBelowIDs:      toSet(c.ForceBelowIDs),
		ForceTableAboveIDs: toSet(c.ForceTableAboveIDs),
		ForceTableBelowIDs: toSet(c.ForceTableBelowIDs),

		GlobalAnchor:             c.GlobalAnchor,
		GlobalAnchorMarginFigure: c.GlobalAnchorMarginFigure,
		GlobalAnchorMarginTable:  c.GlobalAnchorMarginTable,
	}
}

// AsRefineConfig builds the refine package's Config from c. typicalLineHeight
// comes from the document metrics probe (0 disables the exact-two-line
// heuristic, matching its own guard).
func (c Config) AsRefineConfig(typicalLineHeight float64) refine.Config {
	return refine.Config{
		TextTrim:            c.TextTrim,
		TrimMode:            "conservative",
		AdjacentTh:          c.AdjacentThPt,
		FarTextTh:           c.FarTextThPt,
		FarSideMinDist:      c.FarSideMinDistPt,
		FarSideParaMinRatio: c.FarSideParaMinRatio,
		TypicalLineHeight:   typicalLineHeight,

		ObjectPad:                c.ObjectPadPt,
		ObjectMinAreaRatioFigure: c.ObjectMinAreaRatio,
		ObjectMinAreaRatioTable:  c.ObjectMinAreaRatio / 2.4, // 0.005 at the default 0.012
		ObjectMergeGap:           c.ObjectMergeGapPt,
		RefineNearEdgeOnly:       c.RefineNearEdgeOnly,

		Autocrop:            c.Autocrop,
		AutocropPadPx:       c.AutocropPadPx,
		AutocropWhiteTh:     c.AutocropWhiteTh,
		AutocropShrinkLimit: c.AutocropShrinkLimit,
		AutocropMinHeightPx: c.AutocropMinHeightPx,
		ProtectFarEdgePx:    c.ProtectFarEdgePx,
		NearEdgePadPx:       c.NearEdgePadPx,

		DPI: c.DPI,
	}
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
