package driver

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"weft/internal/diag"
	"weft/internal/observ"
	"weft/internal/source"
	"weft/internal/workspace"
)

// FileEvent reports one finished file during a directory check.
type FileEvent struct {
	Path  string
	Index int // position in the sorted file list
	Total int

	// Diags counts what the file's bag holds after its pipeline finished.
	Diags    int
	HasError bool
}

// DirOptions configures CheckDir.
type DirOptions struct {
	Options

	// Jobs caps worker parallelism; 0 or less means GOMAXPROCS.
	Jobs int

	// Events, when set, receives one event per finished file. Calls come
	// from worker goroutines.
	Events func(FileEvent)
}

// DirResult aggregates a directory check. Results aligns with Files; a file
// that failed to load still gets a result whose bag certifies the failure.
type DirResult struct {
	Files   []string
	Results []*CheckResult
	Bag     *diag.Bag // merged over all files, sorted
}

// ListFiles returns every *.weft file under dir, sorted for a
// deterministic order.
func ListFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".weft") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// CheckDir runs the pipeline over every template under dir, in parallel.
// Process linters and the schema cache are shared across files; each file
// still gets its own bag so per-file output stays possible.
func CheckDir(ctx context.Context, dir string, opts DirOptions) (*DirResult, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = workspace.Default(dir)
	}

	if len(files) == 0 {
		return &DirResult{Bag: diag.NewBag(0)}, nil
	}

	// The file set is not safe for concurrent mutation, so every root
	// document loads before the workers start.
	fileSet := source.NewFileSetWithBase(dir)
	fileIDs := make(map[string]source.FileID, len(files))
	loadErrors := make(map[string]error, len(files))
	for _, path := range files {
		id, err := fileSet.Load(path)
		if err != nil {
			loadErrors[path] = err
			continue
		}
		fileIDs[path] = id
	}

	var pool *linterPool
	if opts.Delegate {
		pool = newLinterPool(cfg)
		defer pool.Close()
	}
	schemas := newSchemaCache(cfg)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]*CheckResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if loadErr, failed := loadErrors[path]; failed {
				bag := diag.NewBag(opts.maxDiagnostics())
				bag.Add(diag.New(diag.SevError, diag.IOLoadFileError, source.Span{},
					"failed to load file: "+loadErr.Error()))
				results[i] = &CheckResult{FileSet: fileSet, Bag: bag}
			} else {
				var timer *observ.Timer
				if opts.EnableTimings {
					timer = observ.NewTimer()
				}
				file := fileSet.Get(fileIDs[path])
				results[i] = checkLoaded(gctx, fileSet, file, cfg, opts.Options, timer, pool, schemas)
			}

			if opts.Events != nil {
				res := results[i]
				opts.Events(FileEvent{
					Path:     path,
					Index:    i,
					Total:    len(files),
					Diags:    res.Bag.Len(),
					HasError: res.Bag.HasErrors(),
				})
			}
			return nil
		})
	}

	err = g.Wait()
	return &DirResult{Files: files, Results: results, Bag: mergeBags(results)}, err
}

func mergeBags(results []*CheckResult) *diag.Bag {
	total := diag.NewBag(0)
	for _, r := range results {
		if r == nil {
			continue
		}
		total.Merge(r.Bag)
	}
	total.Sort()
	return total
}
