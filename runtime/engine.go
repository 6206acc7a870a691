package runtime

import (
	"context"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/flowcanvas/engine/registry"
	"github.com/flowcanvas/engine/store"
	"github.com/flowcanvas/engine/types"
	"github.com/flowcanvas/engine/utils"
)

const (
	// persisted run summaries, keyed by run id
	RunPath = "/run/"
	// persisted per-node records, one prefix per run
	RecordPath = "/record/"
)

func recordSavePath(runID string) string {
	return RecordPath + runID
}

func NewEngine(s store.Store, reg *registry.Registry, opts *types.EngineOptions) types.Engine {
	base := opts.Ctx
	if base == nil {
		base = context.Background()
	}
	return &engine{
		store:   s,
		reg:     reg,
		base:    base,
		wp:      workerpool.New(opts.MaxNodeConcurrency),
		running: true,
	}
}

/**
 * engine wires the registry, the shared worker pool and the run-report
 * store together behind the types.Engine contract. One engine serves
 * any number of concurrent Execute calls; each call owns its run state.
 */
type engine struct {
	store store.Store
	reg   *registry.Registry
	// base is the engine-lifetime context from the options; canceling
	// it cancels every run the same way the per-call context does
	base context.Context
	wp   *workerpool.WorkerPool

	mu      sync.Mutex
	running bool
}

func (e *engine) Validate(nodes []*types.Node, connections []*types.Connection) error {
	graph, err := newGraphModel(nodes, connections)
	if err != nil {
		return err
	}
	return e.validateSettings(graph)
}

// validateSettings checks every node's settings bag against the schema
// registered for its type, when there is one. The schema does the
// checking; the engine never looks at setting contents.
func (e *engine) validateSettings(graph *graphModel) error {
	for _, id := range graph.order {
		node := graph.node(id)
		schema, exists := e.reg.Schema(node.TypeID)
		if !exists {
			continue
		}
		if err := schema.Validate(node.Settings); err != nil {
			return errors.Annotatef(err, "node %s", node.ID)
		}
	}
	return nil
}

func (e *engine) Execute(ctx context.Context, req *types.RunRequest) (*types.RunSummary, error) {
	if !e.isRunning() {
		return nil, errors.MethodNotAllowedf("engine is closed")
	}
	if req == nil {
		return nil, errors.BadRequestf("nil run request")
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	graph, err := newGraphModel(e.cloneNodes(req.Nodes), req.Connections)
	if err != nil {
		return nil, err
	}
	if err := e.validateSettings(graph); err != nil {
		return nil, err
	}

	log.Debugf("%s starting run: %d nodes, %d roots", runID, graph.size(), len(graph.roots()))

	runCtx, cancel := e.mergeBase(ctx)
	defer cancel()

	r := newRun(runID, graph, e.reg, e.wp, req)
	summary := r.execute(runCtx)

	e.saveReport(summary)
	return summary, nil
}

// cloneNodes copies the request nodes and fills schema defaults into
// the copies, so executors see defaulted settings while the caller's
// graph stays untouched between runs.
func (e *engine) cloneNodes(nodes []*types.Node) []*types.Node {
	cloned := make([]*types.Node, 0, len(nodes))
	for _, node := range nodes {
		c := *node
		c.Settings = node.Settings.Clone()
		if schema, exists := e.reg.Schema(node.TypeID); exists {
			c.Settings = schema.ApplyDefaults(c.Settings)
		}
		cloned = append(cloned, &c)
	}
	return cloned
}

// mergeBase derives the run context from the per-call context so that
// cancellation of either one cancels the run. The watcher goroutine
// exits with the run.
func (e *engine) mergeBase(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	if e.base.Done() == nil {
		return merged, cancel
	}
	go func() {
		select {
		case <-e.base.Done():
			cancel()
		case <-merged.Done():
		}
	}()
	return merged, cancel
}

// saveReport persists the summary and per-node records. Persistence
// failures are logged, not surfaced: the caller already holds the
// authoritative summary in memory.
func (e *engine) saveReport(summary *types.RunSummary) {
	ctx := context.Background()

	b, err := utils.Serialize(summary)
	if err != nil {
		log.Errorf("%s failed to serialize summary: %v", summary.RunID, err)
		return
	}
	if err := e.store.Set(ctx, RunPath, summary.RunID, b); err != nil {
		log.Errorf("%s failed to save summary: %v", summary.RunID, err)
	}

	for nodeID, result := range summary.Results {
		b, err := utils.Serialize(result)
		if err != nil {
			log.Errorf("%s failed to serialize record %s: %v", summary.RunID, nodeID, err)
			continue
		}
		if err := e.store.Set(ctx, recordSavePath(summary.RunID), nodeID, b); err != nil {
			log.Errorf("%s failed to save record %s: %v", summary.RunID, nodeID, err)
		}
	}
}

func (e *engine) GetRunReport(ctx context.Context, runID string) (*types.RunSummary, error) {
	b, err := e.store.Get(ctx, RunPath, runID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if b == nil {
		return nil, errors.NotFoundf("run: %s", runID)
	}

	summary := &types.RunSummary{}
	if err := utils.Unserialize(b, summary); err != nil {
		return nil, errors.Trace(err)
	}
	return summary, nil
}

func (e *engine) ListRuns(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	err := e.store.List(ctx, RunPath, func(runID string) bool {
		ids = append(ids, runID)
		return true
	})
	return ids, errors.Trace(err)
}

func (e *engine) RenderGraph(nodes []*types.Node, connections []*types.Connection) (string, error) {
	if _, err := newGraphModel(nodes, connections); err != nil {
		return "", errors.Trace(err)
	}
	return newGraphRenderer().generateDOT(nodes, connections, nil), nil
}

func (e *engine) RenderRun(ctx context.Context, runID string) (string, error) {
	summary, err := e.GetRunReport(ctx, runID)
	if err != nil {
		return "", errors.Trace(err)
	}
	// the graph itself is not persisted; render what the run recorded
	return newGraphRenderer().generateRunDOT(summary), nil
}

func (e *engine) isRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

func (e *engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = false
	e.mu.Unlock()

	e.wp.StopWait()

	if closer, ok := e.store.(interface{ Close() error }); ok {
		return errors.Trace(closer.Close())
	}
	return nil
}
