package sourcing

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"
	"worksheet_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(gen GenerationClient, store Store) *Orchestrator {
	return NewOrchestrator(gen, store, WithRand(rand.New(rand.NewSource(1))))
}

func origins(tasks []model.Task) []model.Origin {
	out := make([]model.Origin, len(tasks))
	for i, t := range tasks {
		out[i] = t.Origin
	}
	return out
}

func repeatOrigin(o model.Origin, n int) []model.Origin {
	out := make([]model.Origin, n)
	for i := range out {
		out[i] = o
	}
	return out
}

func TestSourceStoreOnly(t *testing.T) {
	store := newMemStore(rows("exact", 12)...)
	gen := &fakeGenerator{count: 10}
	req := baseRequest()
	req.TaskCount = 10
	req.GenerationPercentage = 0

	res, err := newTestOrchestrator(gen, store).Source(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 10)
	assert.Equal(t, repeatOrigin(model.OriginStored, 10), origins(res.Tasks))
	assert.Equal(t, []int{1}, res.Trace.LevelsConsulted())
	assert.Equal(t, 0, gen.callCount())
	assert.Equal(t, 1.0, res.FulfillmentRatio)
}

func TestSourceGenerationOnly(t *testing.T) {
	store := newMemStore(rows("exact", 12)...)
	gen := &fakeGenerator{count: 10}
	req := baseRequest()
	req.TaskCount = 10
	req.GenerationPercentage = 100

	res, err := newTestOrchestrator(gen, store).Source(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 10)
	assert.Equal(t, repeatOrigin(model.OriginGenerated, 10), origins(res.Tasks))
	assert.Empty(t, store.levels())
	assert.Equal(t, 0, store.loads)
	assert.Empty(t, res.Trace.LevelsConsulted())
	assert.Equal(t, 0, res.Quota.EffectiveStore)
}

func TestSourceShortfallWalksAllLevels(t *testing.T) {
	store := newMemStore(concat(
		rows("exact", 2),
		rows("other", 18, withLanguage("en"), withType(model.TrueFalse)),
	)...)
	gen := &fakeGenerator{count: 3}
	req := baseRequest()
	req.TaskCount = 10
	req.GenerationPercentage = 50

	res, err := newTestOrchestrator(gen, store).Source(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Tasks, 10)

	want := append(repeatOrigin(model.OriginGenerated, 3), repeatOrigin(model.OriginStored, 7)...)
	assert.Equal(t, want, origins(res.Tasks))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, res.Trace.LevelsConsulted())
	assert.Equal(t, 5, res.Quota.Generation)
	assert.Equal(t, 5, res.Quota.Store)
	assert.Equal(t, 3, res.Quota.Generated)
	assert.Equal(t, 7, res.Quota.EffectiveStore)
	assert.Equal(t, 7, res.Quota.Stored)
	assert.Len(t, res.Trace.Stages(StageGenerationShortage), 1)
}

func TestSourceNoMatchingContent(t *testing.T) {
	store := newMemStore()
	req := baseRequest()
	req.TaskCount = 5
	req.GenerationPercentage = 0

	res, err := newTestOrchestrator(&fakeGenerator{}, store).Source(context.Background(), req)
	assert.True(t, errors.Is(err, ErrNoMatchingContent))
	assert.Nil(t, res)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, store.levels())
}

func TestSourceCompensation(t *testing.T) {
	store := newMemStore(rows("exact", 20)...)
	gen := &fakeGenerator{count: 4}
	req := baseRequest()
	req.TaskCount = 10
	req.GenerationPercentage = 60

	res, err := newTestOrchestrator(gen, store).Source(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, gen.calls, 1)
	assert.Equal(t, 6, gen.calls[0].Count)
	assert.Equal(t, 4, res.Quota.Store)
	assert.Equal(t, 6, res.Quota.EffectiveStore)
	assert.Equal(t, 6, res.Quota.Stored)
	assert.Len(t, res.Tasks, 10)

	shortfall := res.Trace.Stages(StageGenerationShortage)
	require.Len(t, shortfall, 1)
	assert.Contains(t, shortfall[0].Detail, "store quota 4 -> 6")
	assert.Equal(t, 2, shortfall[0].ResultCount)
}

func TestSourceGenerationFailureCompensates(t *testing.T) {
	store := newMemStore(rows("exact", 20)...)
	gen := &fakeGenerator{err: errors.New("upstream 502")}
	req := baseRequest()
	req.GenerationPercentage = 50

	res, err := newTestOrchestrator(gen, store).Source(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 10)
	assert.Equal(t, repeatOrigin(model.OriginStored, 10), origins(res.Tasks))

	entries := res.Trace.Stages(StageGeneration)
	require.Len(t, entries, 1)
	assert.Equal(t, "failed: upstream 502", entries[0].Detail)
}

func TestSourceGenerationTimeoutCompensates(t *testing.T) {
	store := newMemStore(rows("exact", 20)...)
	gen := &fakeGenerator{block: true}
	orch := newTestOrchestrator(gen, store)
	orch.UpdateOptions(Options{GenerationTimeout: 20 * time.Millisecond, MaxTaskCount: 50})

	req := baseRequest()
	req.GenerationPercentage = 100

	res, err := orch.Source(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 10)
	assert.Equal(t, 10, res.Quota.EffectiveStore)
	assert.Equal(t, repeatOrigin(model.OriginStored, 10), origins(res.Tasks))
}

func TestSourceNilGenerator(t *testing.T) {
	store := newMemStore(rows("exact", 20)...)
	req := baseRequest()
	req.GenerationPercentage = 30

	res, err := newTestOrchestrator(nil, store).Source(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 10)

	entries := res.Trace.Stages(StageGeneration)
	require.Len(t, entries, 1)
	assert.Equal(t, "failed: generation client not configured", entries[0].Detail)
}

func TestSourceStoreFailureKeepsGenerated(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	gen := &fakeGenerator{count: 3}
	req := baseRequest()
	req.GenerationPercentage = 50

	res, err := newTestOrchestrator(gen, store).Source(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, repeatOrigin(model.OriginGenerated, 3), origins(res.Tasks))
	assert.InDelta(t, 0.3, res.FulfillmentRatio, 1e-9)
	assert.Len(t, res.Trace.Stages(StageStoreFailed), 1)
}

func TestSourceStoreExhaustedKeepsGenerated(t *testing.T) {
	gen := &fakeGenerator{count: 2}
	req := baseRequest()
	req.GenerationPercentage = 50

	res, err := newTestOrchestrator(gen, newMemStore()).Source(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 2)
	assert.Len(t, res.Trace.Stages(StageStoreExhausted), 1)
}

func TestSourceCancelled(t *testing.T) {
	store := newMemStore(rows("exact", 20)...)
	gen := &fakeGenerator{block: true}
	req := baseRequest()
	req.GenerationPercentage = 50

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := newTestOrchestrator(gen, store).Source(ctx, req)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, res)
	assert.Empty(t, store.levels())
}

func TestSourceValidationStopsEarly(t *testing.T) {
	store := newMemStore(rows("exact", 20)...)
	gen := &fakeGenerator{count: 10}
	req := baseRequest()
	req.TaskCount = 0
	req.GenerationPercentage = 50

	_, err := newTestOrchestrator(gen, store).Source(context.Background(), req)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, 0, gen.callCount())
	assert.Empty(t, store.levels())
}

func TestSourceMaxTaskCountHotReload(t *testing.T) {
	orch := newTestOrchestrator(nil, newMemStore(rows("exact", 20)...))
	req := baseRequest()

	_, err := orch.Source(context.Background(), req)
	require.NoError(t, err)

	orch.UpdateOptions(Options{MaxTaskCount: 5})
	_, err = orch.Source(context.Background(), req)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestSourceGenerationSpec(t *testing.T) {
	gen := &fakeGenerator{count: 10}
	req := baseRequest()
	req.Difficulties = []string{"hard", "easy"}
	req.TaskTypes = []string{"single_choice", "short_answer"}
	req.Format = "EXAM"
	req.GenerationPercentage = 100
	req.TopicLabel = "Обыкновенные дроби"
	req.CustomInstructions = "без десятичных дробей"

	res, err := newTestOrchestrator(gen, newMemStore()).Source(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, gen.calls, 1)
	spec := gen.calls[0]
	assert.Equal(t, model.Hard, spec.Difficulty)
	assert.Equal(t, []model.TaskType{model.SingleChoice, model.ShortAnswer}, spec.TaskTypes)
	assert.Equal(t, model.FormatStandard, spec.Format)
	assert.Equal(t, "Обыкновенные дроби", spec.TopicLabel)
	assert.Equal(t, "без десятичных дробей", spec.Instructions)
	assert.Equal(t, 10, spec.Count)

	assert.Len(t, res.Trace.Stages(StageFormatDowngrade), 1)
	assert.Len(t, res.Trace.Stages(StageDifficultyDiscard), 1)
	assert.True(t, res.Normalized.FormatDowngraded)
}

func TestSourceCapsAndFiltersGeneratorOutput(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, spec GenerationSpec) (GenerationOutput, error) {
		tasks := []model.Task{{Question: "broken"}}
		for i := 0; i < spec.Count+3; i++ {
			tasks = append(tasks, model.Task{Question: "ok", Content: model.TrueFalseContent{Answer: true}})
		}
		return GenerationOutput{Tasks: tasks}, nil
	})
	req := baseRequest()
	req.TaskCount = 4
	req.GenerationPercentage = 100

	res, err := newTestOrchestrator(gen, newMemStore()).Source(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 4)
	assert.Equal(t, repeatOrigin(model.OriginGenerated, 4), origins(res.Tasks))
	assert.Contains(t, res.Trace.Stages(StageGeneration)[0].Detail, "dropped=1")
}

// 任意配置下最终题数都不超过请求数
func TestSourceNeverExceedsTaskCount(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	for i := 0; i < 100; i++ {
		req := baseRequest()
		req.TaskCount = 1 + r.Intn(20)
		req.GenerationPercentage = r.Intn(101)
		store := newMemStore(rows("exact", r.Intn(30))...)
		gen := &fakeGenerator{count: r.Intn(25)}

		res, err := newTestOrchestrator(gen, store).Source(context.Background(), req)
		if errors.Is(err, ErrNoMatchingContent) {
			continue
		}
		require.NoError(t, err)
		assert.LessOrEqual(t, len(res.Tasks), req.TaskCount)

		// 生成在前，题库在后
		seenStored := false
		for _, task := range res.Tasks {
			if task.Origin == model.OriginStored {
				seenStored = true
			} else {
				assert.False(t, seenStored, "generated task after stored task")
			}
		}
	}
}

func TestSourceDeterministicWithSeed(t *testing.T) {
	run := func() []string {
		orch := NewOrchestrator(nil, newMemStore(rows("exact", 40)...), WithRand(rand.New(rand.NewSource(11))))
		res, err := orch.Source(context.Background(), baseRequest())
		require.NoError(t, err)
		ids := make([]string, len(res.Tasks))
		for i, task := range res.Tasks {
			ids[i] = task.SourceID
		}
		return ids
	}
	assert.Equal(t, run(), run())
}

func TestTopicLabel(t *testing.T) {
	req := baseRequest()
	assert.Equal(t, "fractions", TopicLabel(req))

	req.TopicLabel = "Дроби"
	assert.Equal(t, "Дроби", TopicLabel(req))

	req.TopicID = ""
	req.TopicLabel = ""
	req.Quarter = 2
	assert.Equal(t, "math, grade 5, quarter 2", TopicLabel(req))

	req.Week = 3
	assert.Equal(t, "math, grade 5, quarter 2, week 3", TopicLabel(req))

	req.Quarter = 0
	req.Week = 0
	assert.Equal(t, "math, grade 5", TopicLabel(req))
}
