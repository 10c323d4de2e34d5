package zarr

import (
	"context"
	"sync"

	"github.com/tuskan/zarrengine/zarrtypes"
)

// RetrieveArraySubsetAsync is the cooperative-scheduling sibling of
// RetrieveArraySubset (§5): rather than handing each chunk its own
// goroutine via errgroup, a fixed pool of worker goroutines sized to the
// resolved chunk parallelism drains a channel of chunk-index work items.
// This bounds in-flight store calls to the same concurrency budget the sync
// scheduler computes, without the set of goroutines growing with the
// number of chunks in the request (useful when a request's chunk count
// could be very large relative to a caller's desired concurrency).
func (a *Array) RetrieveArraySubsetAsync(ctx context.Context, sub zarrtypes.Subset, opts CodecOptions) (*zarrtypes.ArrayBytes, error) {
	opts = opts.resolve()
	grid := a.Grid()
	shape := a.Shape()

	if err := boundsCheck(sub, shape); err != nil {
		return nil, err
	}

	lo, hi := grid.ChunksInArraySubset(sub)
	var chunks [][]int
	if err := EachChunkInRange(lo, hi, func(c []int) error {
		chunks = append(chunks, c)
		return nil
	}); err != nil {
		return nil, err
	}

	if innermostType(a.DType).IsVariable() {
		return a.retrieveArraySubsetVlen(ctx, sub, chunks, opts)
	}

	w, _ := innermostType(a.DType).FixedWidth()
	levels := a.DType.NestingDepth()
	dataBuf := make([]byte, sub.NumElements()*w)
	dataView := zarrtypes.NewDisjointView(dataBuf, sub.Shape, w)
	var maskBufs [][]byte
	var maskViews []*zarrtypes.DisjointView
	for i := 0; i < levels; i++ {
		mb := make([]byte, sub.NumElements())
		maskBufs = append(maskBufs, mb)
		maskViews = append(maskViews, zarrtypes.NewDisjointView(mb, sub.Shape, 1))
	}
	target := zarrtypes.BuildNestedOptionalTarget(dataView, maskViews)

	lo2, hi2 := a.codecConcurrencyRange()
	workers, _ := splitConcurrency(opts.ConcurrentTarget, len(chunks), lo2, hi2)

	if err := runPooled(ctx, chunks, workers, func(ctx context.Context, c []int) error {
		return a.retrieveChunkIntoTarget(ctx, c, sub, target, opts)
	}); err != nil {
		return nil, err
	}

	result := zarrtypes.NewFixed(dataBuf)
	var ab *zarrtypes.ArrayBytes = result
	for i := levels - 1; i >= 0; i-- {
		ab = &zarrtypes.ArrayBytes{Variant: zarrtypes.VariantOptional, Inner: ab, Mask: maskBufs[i]}
	}
	return ab, nil
}

// StoreArraySubsetAsync is the cooperative-scheduling sibling of
// StoreArraySubset.
func (a *Array) StoreArraySubsetAsync(ctx context.Context, sub zarrtypes.Subset, data *zarrtypes.ArrayBytes, opts CodecOptions) error {
	opts = opts.resolve()
	grid := a.Grid()
	shape := a.Shape()
	if err := boundsCheck(sub, shape); err != nil {
		return err
	}

	lo, hi := grid.ChunksInArraySubset(sub)
	var chunks [][]int
	if err := EachChunkInRange(lo, hi, func(c []int) error {
		chunks = append(chunks, c)
		return nil
	}); err != nil {
		return err
	}

	lo3, hi3 := a.codecConcurrencyRange()
	workers, _ := splitConcurrency(opts.ConcurrentTarget, len(chunks), lo3, hi3)

	return runPooled(ctx, chunks, workers, func(ctx context.Context, c []int) error {
		return a.storeOneChunk(ctx, c, sub, data)
	})
}

// runPooled drains items through a fixed-size pool of worker goroutines,
// stopping at the first error (context is canceled for the remaining
// workers so no further store calls are issued once one item fails).
func runPooled(ctx context.Context, items [][]int, workers int, fn func(context.Context, []int) error) error {
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}
	if len(items) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan []int)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range work {
				if err := fn(ctx, c); err != nil {
					select {
					case errCh <- err:
						cancel()
					default:
					}
					return
				}
			}
		}()
	}

feed:
	for _, c := range items {
		select {
		case work <- c:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return ctx.Err() // nil unless the caller's own ctx was canceled
	}
}
