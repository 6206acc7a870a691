package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"

	"github.com/flowcanvas/engine/registry"
	"github.com/flowcanvas/engine/store/mem"
	"github.com/flowcanvas/engine/types"
)

func TestValidate(t *testing.T) {
	eng := newTestEngine(scenarioRegistry())
	defer eng.Close(context.Background())

	nodes := nodeListOfType("const", "a", "b")
	assert.Nil(t, eng.Validate(nodes, []*types.Connection{
		conn("c1", "a", 0, "b", 0),
	}))
	assert.Nil(t, eng.Validate(nil, nil))

	assert.NotNil(t, eng.Validate(nodes, []*types.Connection{
		conn("c1", "a", 0, "b", 0),
		conn("c2", "b", 0, "a", 0),
	}))
	assert.NotNil(t, eng.Validate(nodes, []*types.Connection{
		conn("c1", "a", 0, "ghost", 0),
	}))
}

// structural errors keep their concrete types through the public
// surface, so callers can point at the offending nodes
func TestValidateReturnsTypedErrors(t *testing.T) {
	eng := newTestEngine(scenarioRegistry())
	defer eng.Close(context.Background())

	nodes := nodeListOfType("const", "a", "b")

	err := eng.Validate(nodes, []*types.Connection{
		conn("c1", "a", 0, "b", 0),
		conn("c2", "b", 0, "a", 0),
	})
	cycleErr, ok := err.(*types.CycleError)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "a"}, cycleErr.Nodes)

	err = eng.Validate(nodes, []*types.Connection{
		conn("c1", "a", 0, "ghost", 0),
	})
	dangling, ok := err.(*types.DanglingReferenceError)
	assert.True(t, ok)
	assert.Equal(t, "ghost", dangling.NodeID)

	_, err = eng.Execute(context.Background(), &types.RunRequest{
		Nodes: nodes,
		Connections: []*types.Connection{
			conn("c1", "a", 0, "b", 0),
			conn("c2", "a", 1, "b", 0),
		},
	})
	dup, ok := err.(*types.DuplicateInputError)
	assert.True(t, ok)
	assert.Equal(t, "b", dup.NodeID)
}

func TestValidateSettingsSchema(t *testing.T) {
	reg := scenarioRegistry()
	reg.RegisterSchema(&types.NodeTypeSchema{
		TypeID: "const",
		Settings: map[string]types.SettingSpec{
			"mode": {Kind: types.SettingEnum, Options: []string{"demo", "live"}},
		},
	})

	eng := newTestEngine(reg)
	defer eng.Close(context.Background())

	good := []*types.Node{{ID: "a", TypeID: "const", Settings: types.Data{"mode": "demo"}}}
	assert.Nil(t, eng.Validate(good, nil))

	bad := []*types.Node{{ID: "a", TypeID: "const", Settings: types.Data{"mode": "test"}}}
	assert.NotNil(t, eng.Validate(bad, nil))

	// settings of types without a schema stay opaque
	opaque := []*types.Node{{ID: "b", TypeID: "echo", Settings: types.Data{"anything": 42}}}
	assert.Nil(t, eng.Validate(opaque, nil))

	// execution rejects what validation rejects, before any dispatch
	summary, err := eng.Execute(context.Background(), &types.RunRequest{Nodes: bad})
	assert.NotNil(t, err)
	assert.Nil(t, summary)
}

func TestSchemaDefaultsVisibleToExecutor(t *testing.T) {
	reg := registry.New()
	reg.MustRegister("writer", func(ctx types.Context, ec *types.ExecutionContext) (types.Outputs, error) {
		model, _ := ec.Node.Settings.GetString("model")
		return types.Outputs{0: model}, nil
	})
	reg.RegisterSchema(&types.NodeTypeSchema{
		TypeID: "writer",
		Settings: map[string]types.SettingSpec{
			"model": {Kind: types.SettingEnum, Default: "GPT-5 Mini", Options: []string{"GPT-5 Mini", "GPT-5"}},
		},
	})

	eng := newTestEngine(reg)
	defer eng.Close(context.Background())

	caller := &types.Node{ID: "a", TypeID: "writer"}
	summary, err := eng.Execute(context.Background(), &types.RunRequest{
		Nodes: []*types.Node{caller},
	})
	assert.Nil(t, err)
	assert.Equal(t, "GPT-5 Mini", summary.Result("a").Outputs[0])

	// defaults are applied to a copy, not the caller's node
	assert.Nil(t, caller.Settings)
}

func TestRunReportPersistence(t *testing.T) {
	s := mem.NewMemStore()
	eng := NewEngine(s, scenarioRegistry(), types.NewEngineOptions())
	defer eng.Close(context.Background())

	ctx := context.Background()
	_, err := eng.Execute(ctx, &types.RunRequest{
		RunID: "persisted-run",
		Nodes: []*types.Node{
			{ID: "a", TypeID: "const"},
			{ID: "b", TypeID: "echo"},
		},
		Connections: []*types.Connection{
			conn("c1", "a", 0, "b", 0),
		},
	})
	assert.Nil(t, err)

	report, err := eng.GetRunReport(ctx, "persisted-run")
	assert.Nil(t, err)
	assert.Equal(t, types.RunCompleted, report.Status)
	assert.Equal(t, 2, report.Success)
	assert.Equal(t, types.Success, report.Result("b").Status)
	assert.Equal(t, "xy", report.Result("b").Outputs[0])

	runs, err := eng.ListRuns(ctx)
	assert.Nil(t, err)
	assert.Contains(t, runs, "persisted-run")

	_, err = eng.GetRunReport(ctx, "no-such-run")
	assert.True(t, errors.IsNotFound(err))
}

// a store failure must not fail the run; the caller still gets the
// in-memory summary
func TestRunSurvivesStoreFailure(t *testing.T) {
	s := mem.NewMemStoreWithErrHandler(func() error {
		return errors.New("disk on fire")
	})
	eng := NewEngine(s, scenarioRegistry(), types.NewEngineOptions())
	defer eng.Close(context.Background())

	summary, err := eng.Execute(context.Background(), &types.RunRequest{
		Nodes: []*types.Node{{ID: "a", TypeID: "const"}},
	})
	assert.Nil(t, err)
	assert.Equal(t, types.RunCompleted, summary.Status)
}

// the engine-lifetime context from WithContext cancels runs even when
// the per-call context stays alive
func TestEngineBaseContextCancelsRuns(t *testing.T) {
	baseCtx, cancelBase := context.WithCancel(context.Background())

	reg := registry.New()
	reg.MustRegister("waiter", func(ctx types.Context, ec *types.ExecutionContext) (types.Outputs, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	opts := types.NewEngineOptions()
	types.WithContext(baseCtx)(opts)
	eng := NewEngine(mem.NewMemStore(), reg, opts)
	defer eng.Close(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancelBase()
	}()

	summary, err := eng.Execute(context.Background(), &types.RunRequest{
		Nodes: []*types.Node{{ID: "a", TypeID: "waiter"}},
	})
	assert.Nil(t, err)
	assert.Equal(t, types.RunCanceled, summary.Status)
	assert.Equal(t, types.Error, summary.Result("a").Status)
}

func TestClosedEngine(t *testing.T) {
	eng := newTestEngine(scenarioRegistry())
	assert.Nil(t, eng.Close(context.Background()))
	// closing twice is fine
	assert.Nil(t, eng.Close(context.Background()))

	_, err := eng.Execute(context.Background(), &types.RunRequest{
		Nodes: []*types.Node{{ID: "a", TypeID: "const"}},
	})
	assert.NotNil(t, err)
}

func TestNilRequest(t *testing.T) {
	eng := newTestEngine(scenarioRegistry())
	defer eng.Close(context.Background())

	_, err := eng.Execute(context.Background(), nil)
	assert.NotNil(t, err)
}
