package batch

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/ironsheep/lesion-features/internal/features"
	"github.com/ironsheep/lesion-features/internal/imaging"
)

// SampleLoader decodes the image and mask of one sample.
type SampleLoader interface {
	LoadSample(imagePath, maskPath string) (*imaging.Sample, error)
}

// RecordExtractor computes the feature record of one sample.
type RecordExtractor interface {
	Extract(ctx context.Context, img *imaging.Image, mask *imaging.Mask) (*features.Record, error)
}

// evicter is implemented by loaders that cache decoded files.
type evicter interface {
	Evict(path string)
}

// pathUses counts the manifest entries still needing each file, so a cached
// image shared by several entries is evicted after its last use.
type pathUses struct {
	mu     sync.Mutex
	cache  evicter
	remain map[string]int
}

func newPathUses(loader SampleLoader, entries []Entry) *pathUses {
	c, ok := loader.(evicter)
	if !ok {
		return nil
	}
	u := &pathUses{cache: c, remain: make(map[string]int)}
	for _, e := range entries {
		u.remain[e.ImagePath]++
		u.remain[e.MaskPath]++
	}
	return u
}

// release marks the files of e as used and evicts those no entry needs.
func (u *pathUses) release(e Entry) {
	if u == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, path := range []string{e.ImagePath, e.MaskPath} {
		u.remain[path]--
		if u.remain[path] == 0 {
			u.cache.Evict(path)
		}
	}
}

// Result is the outcome of one manifest entry. Exactly one of Record and Err
// is set.
type Result struct {
	Entry    Entry
	Record   *features.Record
	Err      error
	Duration time.Duration
}

// Runner extracts features for many samples in parallel.
type Runner struct {
	Loader    SampleLoader
	Extractor RecordExtractor

	// Workers is the number of concurrent samples; values below 1 use
	// runtime.NumCPU().
	Workers int

	// SampleTimeout bounds each sample, loading included. Zero disables it.
	SampleTimeout time.Duration

	// Verbose logs one line per finished sample.
	Verbose bool
}

// Run processes every entry and returns the results in manifest order.
//
// A failing, panicking or timed-out sample yields a Result with Err set and
// never stops the others. Cancelling ctx fails the samples not yet finished.
func (r *Runner) Run(ctx context.Context, entries []Entry) []Result {
	workers := r.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(entries) {
		workers = len(entries)
	}

	results := make([]Result, len(entries))
	jobs := make(chan int)
	uses := newPathUses(r.Loader, entries)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.process(ctx, entries[i], uses)
				if r.Verbose {
					logResult(results[i])
				}
			}
		}()
	}

	for i := range entries {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// process runs one sample under its own deadline. The extraction runs in a
// separate goroutine so a deadline is honored even inside a long filter; the
// abandoned goroutine finishes in the background and its result is dropped.
func (r *Runner) process(ctx context.Context, e Entry, uses *pathUses) Result {
	start := time.Now()
	if r.SampleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.SampleTimeout)
		defer cancel()
	}

	done := make(chan Result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- Result{Entry: e, Err: fmt.Errorf("sample %s: panic: %v", e.ID, p)}
			}
		}()
		done <- r.extract(ctx, e, uses)
	}()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = Result{Entry: e, Err: fmt.Errorf("sample %s: %w", e.ID, ctx.Err())}
	}
	res.Duration = time.Since(start)
	return res
}

// extract loads and measures one sample. The decoded files are released
// once loading returns, even when a deadline already abandoned the sample.
func (r *Runner) extract(ctx context.Context, e Entry, uses *pathUses) Result {
	sample, err := func() (*imaging.Sample, error) {
		defer uses.release(e)
		return r.Loader.LoadSample(e.ImagePath, e.MaskPath)
	}()
	if err != nil {
		return Result{Entry: e, Err: fmt.Errorf("sample %s: %w", e.ID, err)}
	}

	record, err := r.Extractor.Extract(ctx, sample.Image, sample.Mask)
	if err != nil {
		return Result{Entry: e, Err: fmt.Errorf("sample %s: %w", e.ID, err)}
	}
	return Result{Entry: e, Record: record}
}

func logResult(res Result) {
	if res.Err != nil {
		log.Printf("FAILED %s after %v: %v", res.Entry.ID, res.Duration.Round(time.Millisecond), res.Err)
		return
	}
	log.Printf("done %s in %v", res.Entry.ID, res.Duration.Round(time.Millisecond))
}

// Failed counts the results carrying an error.
func Failed(results []Result) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}
