package obj

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/objloader/pkg/pool"
)

// Loader loads OBJ/MTL model files on a worker pool. File discovery and
// raw reads happen synchronously on the caller's goroutine; the parse
// pipeline runs as one pool task per LoadFile call.
type Loader struct {
	log        *zap.Logger
	pool       *pool.Pool
	totalTasks atomic.Uint32
}

// NewLoader creates a loader backed by a pool of at most maxWorkers
// workers. maxWorkers == 0 disables concurrency; loads then run on the
// calling goroutine.
func NewLoader(maxWorkers int, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		log:  log,
		pool: pool.New(maxWorkers, log),
	}
}

// WorkerCount reports how many pool workers have been spawned.
func (l *Loader) WorkerCount() int { return l.pool.ThreadCount() }

// Close shuts down the pool, draining any queued loads first.
func (l *Loader) Close() { l.pool.Close() }

// LoadFile loads the model at path asynchronously and returns its future.
// A missing or unreadable OBJ file fails immediately; a missing MTL
// sibling logs a warning and the load proceeds with empty material data.
func (l *Loader) LoadFile(path string, flags Flag) (*pool.Task[*Model], error) {
	readStart := time.Now()

	state := newLoaderState(path, flags)
	discoverFiles(state)

	objBuffers := make(map[int][]byte, len(state.files))
	mtlBuffers := make(map[int][]byte, len(state.files))

	for _, f := range state.files {
		data, err := os.ReadFile(f.ObjPath)
		if err != nil {
			return nil, fmt.Errorf("obj: reading %s: %w", f.ObjPath, err)
		}
		objBuffers[f.LODLevel] = data

		mtl, err := os.ReadFile(f.MtlPath)
		if err != nil {
			l.log.Warn("no mtl found for obj file",
				zap.String("obj", f.ObjPath),
				zap.String("mtl", f.MtlPath))
			mtl = nil
		}
		mtlBuffers[f.LODLevel] = mtl
	}

	readElapsed := time.Since(readStart)
	taskNumber := l.totalTasks.Add(1)

	return pool.Submit(l.pool, func() (*Model, error) {
		return l.runTask(state, objBuffers, mtlBuffers, readElapsed, taskNumber)
	}), nil
}

// runTask executes the full parse pipeline for one load and logs its
// outcome and timing.
func (l *Loader) runTask(state *loaderState, objBuffers, mtlBuffers map[int][]byte,
	readElapsed time.Duration, taskNumber uint32) (*Model, error) {

	start := time.Now()
	l.log.Info("started loading task",
		zap.Uint32("task", taskNumber),
		zap.String("path", state.path))

	model, err := loadInternal(state, objBuffers, mtlBuffers)
	if err != nil {
		l.log.Error("error loading model",
			zap.Uint32("task", taskNumber),
			zap.String("path", state.path),
			zap.Error(err))
		return nil, err
	}

	l.log.Info("finished loading task",
		zap.Uint32("task", taskNumber),
		zap.String("status", "ok"),
		zap.Duration("elapsed", time.Since(start)+readElapsed))
	return model, nil
}

// loadInternal runs the per-LOD pipeline over the pre-read buffers. The
// MTL is parsed before the OBJ so material usage in the geometry can be
// matched against the definitions. When requested, deduplication runs
// before tangent calculation so merged corners accumulate one averaged
// tangent frame.
func loadInternal(state *loaderState, objBuffers, mtlBuffers map[int][]byte) (*Model, error) {
	for _, f := range state.files {
		state.temp = state.temp[:0]

		parseMtl(state, mtlBuffers[f.LODLevel], f.LODLevel)
		if err := parseObj(state, objBuffers[f.LODLevel], f.LODLevel); err != nil {
			return nil, err
		}

		if state.flags.Has(Triangulate) {
			constructVertices(state, f.LODLevel)
		}
		if state.flags.Has(JoinIdentical) {
			joinIdenticalVertices(state.meshes[f.LODLevel])
		}
		if state.flags.Has(CalcTangents) {
			calcTangentSpace(state.meshes[f.LODLevel])
		}
	}

	if state.flags.Has(CombineMeshes) {
		combineMeshes(state)
	}

	return &Model{
		Meshes:    state.meshes,
		Materials: state.materials,
		Combined:  state.combined,
		Path:      state.path,
	}, nil
}
