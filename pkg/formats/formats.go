// Package formats provides parsers for the Zed sprite container (.RSC) and
// palette (.pal) file formats.
//
// An RSC container holds many small interlaced greyscale tiles. ParseRSC
// unpacks them into one square power-of-two atlas using shelf packing over a
// grid of size classes, and reports where each tile landed so callers can
// remap sprite coordinates.
package formats
