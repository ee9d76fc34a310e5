package engine

import (
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"polyapprox/pkg/approx"
	"polyapprox/pkg/common"
	"polyapprox/pkg/config"
	"polyapprox/pkg/engine/memory"
	"polyapprox/pkg/engine/structure"
	"polyapprox/pkg/monitor"
	"polyapprox/pkg/numwall"
	"polyapprox/pkg/polyfit"
	"polyapprox/pkg/storage"
	"polyapprox/pkg/storage/segment"
	"polyapprox/pkg/trend"
)

// seriesState 是单个序列的全部在线状态
type seriesState struct {
	approx   *approx.Approximator
	trend    *trend.Linear
	recent   *memory.MemTable
	segments []string // flushed segment file paths, oldest first

	growth   int // consecutive rank-growing observations
	lastTime float64
	count    int64
}

type shard struct {
	mu     sync.RWMutex
	series map[string]*seriesState
}

// Engine 是多序列外推引擎: 分片的序列表 + WAL + SQLite 持久化
type Engine struct {
	shards []*shard
	bloom  *structure.BloomFilter

	backend storage.Backend
	wal     *storage.WAL
	stats   *monitor.Stats
	conf    *config.Config

	segDir  string
	writeCh chan common.Sample
	closeCh chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
}

// DiagnosticPoint pairs an observed sample with its least-squares
// refit, for export and plotting.
type DiagnosticPoint struct {
	Time   float64
	Actual float64
	Fitted float64
	Error  float64
}

func New(conf *config.Config) (*Engine, error) {
	if err := os.MkdirAll(conf.Storage.Path, 0755); err != nil {
		return nil, err
	}

	backend, err := storage.NewSQLiteBackend(conf.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	wal, err := storage.OpenWAL(filepath.Join(conf.Storage.Path, "samples.wal"))
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("open wal: %w", err)
	}

	e := &Engine{
		shards:  make([]*shard, conf.System.ShardCount),
		bloom:   structure.NewBloomFilter(conf.System.BloomSize, conf.System.BloomFalseProb),
		backend: backend,
		wal:     wal,
		stats:   monitor.NewStats(),
		conf:    conf,
		segDir:  filepath.Join(conf.Storage.Path, "segments"),
		writeCh: make(chan common.Sample, conf.Storage.WalBufferSize),
		closeCh: make(chan struct{}),
	}
	for i := range e.shards {
		e.shards[i] = &shard{series: make(map[string]*seriesState)}
	}

	if err := e.recover(); err != nil {
		wal.Close()
		backend.Close()
		return nil, fmt.Errorf("recover: %w", err)
	}

	e.wg.Add(1)
	go e.backgroundPersist()

	return e, nil
}

func (e *Engine) shardFor(series string) *shard {
	h := fnv.New32a()
	h.Write([]byte(series))
	return e.shards[h.Sum32()%uint32(len(e.shards))]
}

func (e *Engine) getOrCreate(sh *shard, series string) *seriesState {
	st, ok := sh.series[series]
	if !ok {
		st = &seriesState{
			approx: approx.New(),
			trend:  trend.NewLinear(),
			recent: memory.NewMemTable(),
		}
		sh.series[series] = st
		e.bloom.Add(series)
	}
	return st
}

// Observe feeds one sample into a series and returns the polynomial
// rank after the update. Samples must arrive in ascending time order
// per series; a duplicate time returns approx.ErrStaleSample with the
// low ranks already committed.
func (e *Engine) Observe(series string, t, v float64) (int, error) {
	if series == "" {
		return 0, fmt.Errorf("engine: empty series name")
	}

	sh := e.shardFor(series)
	sh.mu.Lock()
	st := e.getOrCreate(sh, series)

	grew, err := st.approx.Observe(v, t)
	if err != nil {
		rank := st.approx.Rank()
		sh.mu.Unlock()
		return rank, err
	}

	if grew {
		st.growth++
	} else {
		st.growth = 0
	}

	// A long streak of independent deltas means the old polynomial no
	// longer describes the signal: detach the stale high ranks.
	if st.growth >= e.conf.Engine.GapThreshold && st.approx.Rank() > st.growth {
		st.approx.Split(st.growth + 1)
		st.growth = 0
		e.stats.IncShock()
		log.Printf("[Engine] shock on series %s at t=%v, high ranks dropped", series, t)
	}

	st.approx.Reduce(e.conf.Engine.MaxRank, e.conf.Engine.ReduceEpsilon, false)

	st.trend.Update(t, v)
	st.recent.Put(t, v)
	st.lastTime = t
	st.count++

	if st.recent.Count() >= e.conf.Storage.FlushThreshold {
		if err := e.flushLocked(series, st); err != nil {
			log.Printf("[Engine] flush %s failed: %v", series, err)
		}
	}

	rank := st.approx.Rank()
	sh.mu.Unlock()

	e.stats.IncObserve()

	rec := common.Sample{Series: series, Time: t, Value: v}
	if err := e.wal.Append(rec); err != nil {
		return rank, fmt.Errorf("wal append: %w", err)
	}

	select {
	case e.writeCh <- rec:
	case <-e.closeCh:
		return rank, fmt.Errorf("engine: closed")
	}
	return rank, nil
}

// flushLocked writes the memtable out as a segment file. Caller holds
// the shard lock.
func (e *Engine) flushLocked(series string, st *seriesState) error {
	recs := st.recent.All(series)
	if len(recs) == 0 {
		return nil
	}

	b, err := segment.NewBuilder(e.segDir, series)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := b.Add(rec.Time, rec.Value); err != nil {
			b.Abort()
			return err
		}
	}
	path, err := b.Finish()
	if err != nil {
		return err
	}

	st.segments = append(st.segments, path)
	st.recent.Reset()
	log.Printf("[Engine] flushed %d samples of %s to %s", len(recs), series, filepath.Base(path))
	return nil
}

// lookup returns the series state under a read lock, or (nil, nil, false).
func (e *Engine) lookup(series string) (*shard, *seriesState, bool) {
	if !e.bloom.MayContain(series) {
		return nil, nil, false
	}
	sh := e.shardFor(series)
	sh.mu.RLock()
	st, ok := sh.series[series]
	if !ok {
		sh.mu.RUnlock()
		return nil, nil, false
	}
	return sh, st, true
}

// Extrapolate evaluates the series polynomial at the given moment.
func (e *Engine) Extrapolate(series string, t float64) (float64, error) {
	e.stats.IncQuery()

	sh, st, ok := e.lookup(series)
	if !ok {
		return 0, fmt.Errorf("engine: unknown series %q", series)
	}
	defer sh.mu.RUnlock()

	e.stats.IncHit()
	return st.approx.At(t)
}

// Derivative evaluates the rank-th derivative of the series polynomial
// at the given moment.
func (e *Engine) Derivative(series string, rank int, t float64) (float64, error) {
	e.stats.IncQuery()

	sh, st, ok := e.lookup(series)
	if !ok {
		return 0, fmt.Errorf("engine: unknown series %q", series)
	}
	a := st.approx.Clone()
	sh.mu.RUnlock()

	e.stats.IncHit()
	if rank >= a.Rank() {
		return 0, nil
	}
	if err := a.MakeDerivs(t); err != nil {
		return 0, err
	}
	return a.Deriv(rank), nil
}

// Coefs returns the power-basis coefficients of the series polynomial
// around the given moment.
func (e *Engine) Coefs(series string, at float64) ([]float64, error) {
	e.stats.IncQuery()

	sh, st, ok := e.lookup(series)
	if !ok {
		return nil, fmt.Errorf("engine: unknown series %q", series)
	}
	a := st.approx.Clone()
	sh.mu.RUnlock()

	e.stats.IncHit()
	return a.Coefs(at)
}

// Trend returns the incremental least-squares line for the series.
func (e *Engine) Trend(series string) (slope, intercept float64, err error) {
	sh, st, ok := e.lookup(series)
	if !ok {
		return 0, 0, fmt.Errorf("engine: unknown series %q", series)
	}
	defer sh.mu.RUnlock()
	return st.trend.Slope, st.trend.Intercept, nil
}

// History returns the samples of a series in [from, to], merging the
// in-memory window with flushed segments.
func (e *Engine) History(series string, from, to float64) ([]common.Sample, error) {
	e.stats.IncQuery()

	sh, st, ok := e.lookup(series)
	if !ok {
		return nil, fmt.Errorf("engine: unknown series %q", series)
	}
	segs := append([]string(nil), st.segments...)
	recs := st.recent.Scan(series, from, to)
	sh.mu.RUnlock()

	e.stats.IncHit()

	seen := make(map[float64]bool, len(recs))
	for _, rec := range recs {
		seen[rec.Time] = true
	}

	for _, path := range segs {
		r, err := segment.Open(path)
		if err != nil {
			log.Printf("[Engine] skip segment %s: %v", filepath.Base(path), err)
			continue
		}
		part, err := r.Scan(from, to)
		r.Close()
		if err != nil {
			return nil, err
		}
		for _, rec := range part {
			if !seen[rec.Time] {
				seen[rec.Time] = true
				recs = append(recs, rec)
			}
		}
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Time < recs[j].Time })
	return recs, nil
}

// Wall builds a number wall over the recent values of a series. Its
// order is the length of the shortest linear recurrence the values
// obey.
func (e *Engine) Wall(series string, depth int) (*numwall.Wall, error) {
	sh, st, ok := e.lookup(series)
	if !ok {
		return nil, fmt.Errorf("engine: unknown series %q", series)
	}
	recs := st.recent.All(series)
	sh.mu.RUnlock()

	vals := make([]float64, len(recs))
	for i, rec := range recs {
		vals[i] = rec.Value
	}
	if depth <= 0 {
		depth = numwall.DefaultDepth
	}
	return numwall.Generate(numwall.FromFloats(vals), depth)
}

// Export refits the recent samples with least squares and returns
// per-sample residuals against the refit.
func (e *Engine) Export(series string) ([]DiagnosticPoint, error) {
	sh, st, ok := e.lookup(series)
	if !ok {
		return nil, fmt.Errorf("engine: unknown series %q", series)
	}
	recs := st.recent.All(series)
	rank := st.approx.Rank()
	sh.mu.RUnlock()

	if len(recs) == 0 {
		return nil, fmt.Errorf("engine: series %q has no recent samples", series)
	}

	degree := rank - 1
	if degree < 1 {
		degree = 1
	}
	if degree > len(recs)-1 {
		degree = len(recs) - 1
	}

	xs := make([]float64, len(recs))
	ys := make([]float64, len(recs))
	for i, rec := range recs {
		xs[i] = rec.Time
		ys[i] = rec.Value
	}
	coefs, err := polyfit.Fit(xs, ys, degree)
	if err != nil {
		return nil, err
	}

	out := make([]DiagnosticPoint, len(recs))
	for i, rec := range recs {
		fitted := polyfit.Eval(coefs, rec.Time)
		out[i] = DiagnosticPoint{
			Time:   rec.Time,
			Actual: rec.Value,
			Fitted: fitted,
			Error:  rec.Value - fitted,
		}
	}
	return out, nil
}

// Forget drops a series everywhere: memory, segments and the backend.
func (e *Engine) Forget(series string) error {
	sh := e.shardFor(series)
	sh.mu.Lock()
	st, ok := sh.series[series]
	if ok {
		delete(sh.series, series)
	}
	sh.mu.Unlock()

	if !ok {
		return fmt.Errorf("engine: unknown series %q", series)
	}

	for _, path := range st.segments {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("[Engine] remove segment %s: %v", filepath.Base(path), err)
		}
	}
	return e.backend.DeleteSeries(series)
}

// SeriesNames returns the known series names, sorted.
func (e *Engine) SeriesNames() []string {
	var names []string
	for _, sh := range e.shards {
		sh.mu.RLock()
		for name := range sh.series {
			names = append(names, name)
		}
		sh.mu.RUnlock()
	}
	sort.Strings(names)
	return names
}

// Stats 返回引擎运行计数快照
func (e *Engine) Stats() map[string]interface{} {
	seriesCount := 0
	var sampleCount int64
	for _, sh := range e.shards {
		sh.mu.RLock()
		seriesCount += len(sh.series)
		for _, st := range sh.series {
			sampleCount += st.count
		}
		sh.mu.RUnlock()
	}

	return map[string]interface{}{
		"series_count":  seriesCount,
		"sample_count":  sampleCount,
		"observe_count": e.stats.Observes(),
		"query_count":   e.stats.Queries(),
		"hit_ratio":     e.stats.HitRatio(),
		"shock_count":   e.stats.Shocks(),
		"shard_count":   len(e.shards),
	}
}

// Reset drops all in-memory and persisted state.
func (e *Engine) Reset() error {
	for _, sh := range e.shards {
		sh.mu.Lock()
		for _, st := range sh.series {
			for _, path := range st.segments {
				os.Remove(path)
			}
		}
		sh.series = make(map[string]*seriesState)
		sh.mu.Unlock()
	}
	e.bloom.Reset()
	e.stats.Reset()

	// Drop anything still queued for persistence
	for {
		select {
		case <-e.writeCh:
			continue
		default:
		}
		break
	}

	if err := e.wal.Truncate(); err != nil {
		return err
	}
	return e.backend.Truncate()
}

// backgroundPersist drains the write channel and commits batches to
// the backend. The WAL is truncated once everything pending has been
// committed.
func (e *Engine) backgroundPersist() {
	defer e.wg.Done()

	batch := make([]common.Sample, 0, e.conf.Storage.WalBatchSize)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	commit := func() {
		if len(batch) == 0 {
			return
		}
		if err := e.backend.BatchWrite(batch); err != nil {
			log.Printf("[Engine] batch persist failed: %v", err)
			return
		}
		batch = batch[:0]
		if len(e.writeCh) == 0 {
			if err := e.wal.Truncate(); err != nil {
				log.Printf("[Engine] wal truncate failed: %v", err)
			}
		}
	}

	for {
		select {
		case rec := <-e.writeCh:
			batch = append(batch, rec)
			if len(batch) >= e.conf.Storage.WalBatchSize {
				commit()
			}
		case <-ticker.C:
			commit()
		case <-e.closeCh:
			for {
				select {
				case rec := <-e.writeCh:
					batch = append(batch, rec)
				default:
					commit()
					return
				}
			}
		}
	}
}

// recover rebuilds the in-memory state from the backend plus any WAL
// records that never made it into a batch.
func (e *Engine) recover() error {
	recs, err := e.backend.LoadAll()
	if err != nil {
		return err
	}

	seen := make(map[string]map[float64]bool)
	bySeries := make(map[string][]common.Sample)
	add := func(rec common.Sample) {
		if seen[rec.Series] == nil {
			seen[rec.Series] = make(map[float64]bool)
		}
		if seen[rec.Series][rec.Time] {
			return
		}
		seen[rec.Series][rec.Time] = true
		bySeries[rec.Series] = append(bySeries[rec.Series], rec)
	}
	for _, rec := range recs {
		add(rec)
	}

	it, err := e.wal.NewIterator()
	if err != nil {
		return err
	}
	walCount := 0
	for {
		rec, err := it.Next()
		if err != nil {
			break // EOF or a torn tail record
		}
		add(rec)
		walCount++
	}
	it.Close()

	segsBySeries, err := e.scanSegments()
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(len(e.shards))

	for name, samples := range bySeries {
		name, samples := name, samples
		g.Go(func() error {
			sort.Slice(samples, func(i, j int) bool { return samples[i].Time < samples[j].Time })

			st := &seriesState{
				approx:   approx.New(),
				trend:    trend.NewLinear(),
				recent:   memory.NewMemTable(),
				segments: segsBySeries[name],
			}
			for _, rec := range samples {
				if _, err := st.approx.Observe(rec.Value, rec.Time); err != nil {
					return fmt.Errorf("replay %s at t=%v: %w", name, rec.Time, err)
				}
				st.approx.Reduce(e.conf.Engine.MaxRank, e.conf.Engine.ReduceEpsilon, false)
				st.trend.Update(rec.Time, rec.Value)
				st.lastTime = rec.Time
				st.count++
			}

			window := samples
			if len(window) > e.conf.Engine.HistoryLimit {
				window = window[len(window)-e.conf.Engine.HistoryLimit:]
			}
			for _, rec := range window {
				st.recent.Put(rec.Time, rec.Value)
			}

			sh := e.shardFor(name)
			sh.mu.Lock()
			sh.series[name] = st
			sh.mu.Unlock()
			e.bloom.Add(name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(bySeries) > 0 {
		log.Printf("[Engine] recovered %d series, %d samples (%d from wal)",
			len(bySeries), countSamples(bySeries), walCount)
	}
	return nil
}

func countSamples(m map[string][]common.Sample) int {
	n := 0
	for _, s := range m {
		n += len(s)
	}
	return n
}

// scanSegments lists the flushed segment files grouped by series.
func (e *Engine) scanSegments() (map[string][]string, error) {
	entries, err := os.ReadDir(e.segDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string)
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".seg" {
			continue
		}
		path := filepath.Join(e.segDir, ent.Name())
		r, err := segment.Open(path)
		if err != nil {
			log.Printf("[Engine] skip segment %s: %v", ent.Name(), err)
			continue
		}
		out[r.Series()] = append(out[r.Series()], path)
		r.Close()
	}
	return out, nil
}

// Close flushes pending writes and releases the storage layer.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.closeCh)
		e.wg.Wait()
		if werr := e.wal.Close(); werr != nil {
			err = werr
		}
		if berr := e.backend.Close(); berr != nil && err == nil {
			err = berr
		}
	})
	return err
}
