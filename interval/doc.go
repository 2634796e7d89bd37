/*Package interval cuts genomes into slices, bounded-width windows of a
  single sequence that are processed independently.  Coordinates are
  0-based and half-open, as in BED files.
*/
package interval
