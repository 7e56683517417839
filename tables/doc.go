// Package tables detects table grids from a page's extracted graphics
// lines, for use as the table-structure signal in anchor window scoring
// and phase B's table-edge snapping.
//
// [GridDetector] groups horizontal and vertical line segments into
// aligned rows and columns and reports each candidate grid as a
// [GridHypothesis] with a bounding box and confidence score:
//
//	gd := tables.NewGridDetector()
//	hyps := gd.DetectFromLines(horizontals, verticals)
//
// Confidence combines the cell count, grid regularity, border
// completeness, and line coverage of the hypothesised grid.
package tables
