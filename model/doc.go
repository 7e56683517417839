// Package model provides the geometric and layout intermediate
// representation (IR) shared by the reader/layout packages, and the
// attachment-extraction data model built on top of it.
//
// Two coordinate systems coexist deliberately. [BBox] is bottom-left-origin,
// the PDF-native convention the layout analyzer and the geometric
// primitives pulled out of content streams use. [Rect] is top-left-origin,
// the convention the attachment pipeline (caption, anchor, refine, render)
// operates in throughout. The flip between the two always goes through
// [RectToBBox] and [BBoxToRect], using the owning page's height; the backend
// package converts everything it hands out, and anchor, refine, layoutmodel
// and docmetrics also convert where they call BBox-based helpers.
//
// # Page content elements
//
// [Element] implementations describe reading-order page content built by
// the layout analyzer:
//
//   - [Paragraph] - text paragraphs
//   - [Heading] - headings (levels 1-6)
//   - [List] - ordered or unordered lists
//
// # Geometry
//
// Geometric primitives support position and layout calculations:
//
//   - [BBox] - bounding box with intersection, union, and overlap calculations
//   - [Point] - 2D point with distance calculation
//   - [Matrix] - 2D affine transformation matrix
//   - [Rect] - top-left-origin rectangle used by the attachment pipeline
//
// # Attachment model
//
// [AttachmentKind], [Caption], [CaptionCandidate], [AnchorChoice],
// [RefinementResult] and [AttachmentRecord] describe a single figure or
// table as it moves through detection, anchoring and refinement.
package model
