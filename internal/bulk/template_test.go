package bulk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateInput_Validate(t *testing.T) {
	task := map[string]any{"title": "Step"}
	tests := []struct {
		name string
		in   TemplateInput
		ok   bool
	}{
		{"valid", TemplateInput{Name: "Weekly", Tasks: []map[string]any{task}}, true},
		{"blank name", TemplateInput{Name: "  ", Tasks: []map[string]any{task}}, false},
		{"long name", TemplateInput{Name: strings.Repeat("n", 101), Tasks: []map[string]any{task}}, false},
		{"no tasks", TemplateInput{Name: "x"}, false},
		{"too many tasks", TemplateInput{Name: "x", Tasks: make([]map[string]any, 51)}, false},
		{"task without title", TemplateInput{Name: "x", Tasks: []map[string]any{{"priority": "low"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestTemplateStore(t *testing.T) {
	ctx := context.Background()
	kv := cache.NewMemoryStore(time.Hour)
	s := NewTemplateStore(kv, time.Hour, nil)

	work, err := s.Create(ctx, 1, TemplateInput{
		Name:     " Sprint ",
		Category: "work",
		Tasks:    []map[string]any{{"title": "Plan"}, {"title": "Review", "priority": "high"}},
		IsPublic: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Sprint", work.Name)
	assert.True(t, work.IsPublic)

	_, err = s.Create(ctx, 1, TemplateInput{Name: "Chores", Category: "home", Tasks: []map[string]any{{"title": "Dishes"}}})
	require.NoError(t, err)
	_, err = s.Create(ctx, 2, TemplateInput{Name: "Other", Tasks: []map[string]any{{"title": "x"}}})
	require.NoError(t, err)

	all, err := s.List(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyWork, err := s.List(ctx, 1, "WORK")
	require.NoError(t, err)
	require.Len(t, onlyWork, 1)
	assert.Equal(t, work.ID, onlyWork[0].ID)

	got, err := s.Get(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, "Review", got.Tasks[1]["title"])

	t.Run("evicted templates are skipped", func(t *testing.T) {
		require.NoError(t, kv.Delete(ctx, cache.TemplateKey(work.ID)))
		list, err := s.List(ctx, 1, "")
		require.NoError(t, err)
		assert.Len(t, list, 1)

		_, err = s.Get(ctx, work.ID)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})
}

func TestTemplateStore_ConcurrentCreateKeepsIndex(t *testing.T) {
	ctx := context.Background()
	s := NewTemplateStore(cache.NewMemoryStore(time.Hour), time.Hour, nil)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Create(ctx, 9, TemplateInput{
				Name:  fmt.Sprintf("t%d", i),
				Tasks: []map[string]any{{"title": "x"}},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	list, err := s.List(ctx, 9, "")
	require.NoError(t, err)
	assert.Len(t, list, n)
}

func TestTemplate_InstantiateDeepCopies(t *testing.T) {
	tpl := &Template{Tasks: []map[string]any{{"title": "A", "priority": "low"}, {"title": "B"}}}

	items, err := tpl.Instantiate(map[string]any{"priority": "high"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "high", items[0]["priority"])
	assert.Equal(t, "high", items[1]["priority"])

	items[0]["title"] = "mutated"
	assert.Equal(t, "A", tpl.Tasks[0]["title"])
	assert.Equal(t, "low", tpl.Tasks[0]["priority"])
}
