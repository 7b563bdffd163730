package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nathanaday/iot-data-core/internal/api"
)

// Open fully materializes a project into the client caches: the project
// record, its layers, per-layer datasource metadata, and per-layer time
// series, then selects it.
//
// Stages run strictly in order; within a fan-out stage the per-layer
// calls are concurrent and unordered. Only the project fetch and the
// layer-list fetch are fatal. A per-layer fetch failure drops that layer
// from the active set (recorded in LayerLoadErrors); a per-layer data or
// metadata failure leaves that one layer without data. A 404 on data or
// metadata means the layer points at a deleted datasource - an expected
// condition, neither logged nor escalated.
//
// The pipeline is not atomic: a concurrent reader may observe the
// project selected with a partial layer set.
func (s *ProjectStore) Open(ctx context.Context, id int64) error {
	s.begin()

	project, err := s.client.GetProject(ctx, id)
	if err != nil {
		s.fail(err)
		return err
	}

	refs, err := s.client.ListProjectLayers(ctx, id)
	if err != nil {
		s.fail(err)
		return err
	}

	// A project with zero layers is a valid terminal state.
	if len(refs) == 0 {
		s.layers.SetAll(nil)
		s.finishOpen(project, nil)
		return nil
	}

	loaded, failed := s.fetchLayers(ctx, refs)
	s.layers.SetAll(loaded)

	s.fetchLayerData(ctx, loaded)

	s.finishOpen(project, failed)
	return nil
}

// fetchLayers resolves each layer ref concurrently. Failures are caught
// per item: the batch never aborts.
func (s *ProjectStore) fetchLayers(ctx context.Context, refs []api.Layer) ([]api.Layer, map[int64]string) {
	type result struct {
		layer api.Layer
		err   error
	}
	results := make([]result, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, layerID int64) {
			defer wg.Done()
			l, err := s.client.GetLayer(ctx, layerID)
			results[i] = result{layer: l, err: err}
		}(i, ref.ID)
	}
	wg.Wait()

	loaded := make([]api.Layer, 0, len(refs))
	var failed map[int64]string
	for i, ref := range refs {
		if err := results[i].err; err != nil {
			s.log.Warn("layer fetch failed during project load",
				zap.Int64("layer_id", ref.ID), zap.Error(err))
			if failed == nil {
				failed = make(map[int64]string)
			}
			failed[ref.ID] = err.Error()
			continue
		}
		loaded = append(loaded, results[i].layer)
	}
	return loaded, failed
}

// fetchLayerData fans out over the successfully loaded layers, fetching
// each layer's time series and datasource metadata. Nothing here is
// fatal; each failure costs only that layer's data.
func (s *ProjectStore) fetchLayerData(ctx context.Context, layers []api.Layer) {
	var wg sync.WaitGroup
	for _, l := range layers {
		wg.Add(1)
		go func(l api.Layer) {
			defer wg.Done()

			ts, err := s.client.GetLayerData(ctx, l.ID, nil, nil)
			switch {
			case err == nil:
				s.layers.PutSeries(l.ID, ts)
			case api.IsNotFound(err):
				// datasource gone; expected, no log
			default:
				s.log.Warn("layer data fetch failed during project load",
					zap.Int64("layer_id", l.ID), zap.Error(err))
			}

			// FetchMetadata swallows expected 404s itself.
			if _, err := s.layers.FetchMetadata(ctx, l.ID); err != nil {
				s.log.Warn("layer metadata fetch failed during project load",
					zap.Int64("layer_id", l.ID), zap.Error(err))
			}
		}(l)
	}
	wg.Wait()
}

func (s *ProjectStore) fail(err error) {
	s.mu.Lock()
	s.loading = false
	s.lastErr = err.Error()
	s.mu.Unlock()
}

func (s *ProjectStore) finishOpen(project api.Project, failed map[int64]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(project)
	s.selectProjectLocked(project.ID)
	s.layerLoadErrs = failed
	s.loading = false
}
