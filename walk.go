package pmread

import (
	"context"
	"iter"
)

// TileCoords walks the whole directory tree and yields the coordinate
// of every tile in the archive, ascending by tile id. Data entries with
// a run expand to one coordinate per covered id.
//
// The walk is lazy and single-pass: directories are fetched as the
// consumer advances, and an exhausted sequence is not restartable
// (range over the method again to re-walk from the root). The first
// source or codec failure is yielded with a zero coordinate and ends
// the sequence. Unlike the single-tile descent there is no depth bound,
// so a malformed archive with a directory cycle would not terminate.
func (r *Reader) TileCoords(ctx context.Context) iter.Seq2[TileCoord, error] {
	return func(yield func(TileCoord, error) bool) {
		load := func(rng Range) (Entries, error) {
			return r.dirs.load(ctx, r.header, r.source, rng, r.decompress)
		}

		entries, err := load(Range{Offset: r.header.RootOffset, Length: r.header.RootLength})
		if err != nil {
			yield(TileCoord{}, err)
			return
		}

		// explicit frame stack instead of recursion keeps the walk
		// resumable between yields and the call stack flat
		type frame struct {
			entries Entries
			next    int
		}
		stack := []frame{{entries: entries}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(top.entries) {
				stack = stack[:len(stack)-1]
				continue
			}

			entry := top.entries[top.next]
			top.next++

			if entry.RunLength == 0 {
				child, err := load(Range{
					Offset: r.header.LeafDirectoryOffset + entry.Offset,
					Length: entry.Length,
				})
				if err != nil {
					yield(TileCoord{}, err)
					return
				}
				stack = append(stack, frame{entries: child})
				continue
			}

			for i := range uint64(entry.RunLength) {
				coord, err := FromTileID(entry.TileID + i)
				if err != nil {
					// ids past the producible curve range are flagged,
					// not silently truncated
					yield(TileCoord{}, err)
					return
				}
				if !yield(coord, nil) {
					return
				}
			}
		}
	}
}

// VisitTileCoords drives the same walk as TileCoords through a visitor.
// The first error from the walk or the visitor stops the traversal and
// is returned.
func (r *Reader) VisitTileCoords(ctx context.Context, visit func(TileCoord) error) error {
	for coord, err := range r.TileCoords(ctx) {
		if err != nil {
			return err
		}
		if err := visit(coord); err != nil {
			return err
		}
	}
	return nil
}
