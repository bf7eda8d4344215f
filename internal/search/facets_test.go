package search

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/storage"
)

func TestTopBuckets(t *testing.T) {
	counts := []storage.FacetCount{
		{Value: "b", Count: 2},
		{Value: "a", Count: 2},
		{Value: "c", Count: 5},
		{Value: "", Count: 9},
		{Value: "d", Count: 0},
		{Value: "a", Count: 1},
	}
	got := topBuckets(counts, 0)
	assert.Equal(t, []models.FacetBucket{{Name: "c", Count: 5}, {Name: "a", Count: 3}, {Name: "b", Count: 2}}, got)

	assert.Len(t, topBuckets(counts, 2), 2)
	assert.NotNil(t, topBuckets(nil, 5))
}

func TestTopBuckets_IndustryCap(t *testing.T) {
	var counts []storage.FacetCount
	for i := 0; i < 30; i++ {
		counts = append(counts, storage.FacetCount{Value: fmt.Sprintf("industry-%02d", i), Count: i + 1})
	}
	got := topBuckets(counts, industryFacetLimit)
	require.Len(t, got, 20)
	assert.Equal(t, "industry-29", got[0].Name)
	assert.Equal(t, "industry-10", got[19].Name)
}

func TestSizeBuckets(t *testing.T) {
	counts := []storage.FacetCount{
		{Value: "0", Count: 4},
		{Value: "5", Count: 1},
		{Value: "10", Count: 2},
		{Value: "11", Count: 1},
		{Value: "250", Count: 3},
		{Value: "5000", Count: 1},
		{Value: "n/a", Count: 7},
	}
	got := sizeBuckets(counts)
	assert.Equal(t, []models.FacetBucket{
		{Name: models.SizeLarge, Count: 3},
		{Name: models.SizeStartup, Count: 3},
		{Name: models.SizeEnterprise, Count: 1},
		{Name: models.SizeSmall, Count: 1},
	}, got)
}

type failingFacetCache struct{ memoryFacetCache }

func (c *failingFacetCache) Get(context.Context) (*models.FacetSet, bool, error) {
	return nil, false, errInjected
}

func TestFacetAggregator_CacheReadFailure(t *testing.T) {
	cache := &failingFacetCache{}
	a := NewFacetAggregator(newSeededStore(t), cache, 0, 0, nil)

	fs := a.Aggregate(context.Background())
	assert.NotEmpty(t, fs.Industries)
	assert.Equal(t, 1, cache.sets)
}

func TestFacetAggregator_AllFail(t *testing.T) {
	store := &faultStore{
		Store: newSeededStore(t),
		fail: map[models.Collection]bool{
			models.CollectionOrganizations: true,
			models.CollectionServices:      true,
		},
	}
	fs := NewFacetAggregator(store, nil, 0, 0, nil).Aggregate(context.Background())
	assert.Equal(t, emptyFacets(), fs)
}

// gatedStore holds facet aggregation until release is closed or ctx ends.
type gatedStore struct {
	storage.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedStore) AggregateFacet(ctx context.Context, c models.Collection, column string) ([]storage.FacetCount, error) {
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Store.AggregateFacet(ctx, c, column)
}

func TestFacetAggregator_SharedAggregationOutlivesCaller(t *testing.T) {
	store := &gatedStore{
		Store:   newSeededStore(t),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := &memoryFacetCache{}
	a := NewFacetAggregator(store, cache, time.Minute, 5*time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan models.FacetSet, 1)
	go func() { first <- a.Aggregate(ctx) }()
	<-store.entered
	cancel()
	assert.Equal(t, emptyFacets(), <-first)

	second := make(chan models.FacetSet, 1)
	go func() { second <- a.Aggregate(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	close(store.release)

	fs := <-second
	assert.Equal(t, []models.FacetBucket{
		{Name: "AI・人工知能", Count: 1}, {Name: "クラウド", Count: 1}, {Name: "マーケティング", Count: 1},
	}, fs.Industries)
	assert.NotEmpty(t, fs.Regions)
	assert.NotEmpty(t, fs.Categories)
	assert.NotEmpty(t, fs.CompanySizes)

	cache.mu.Lock()
	defer cache.mu.Unlock()
	assert.NotNil(t, cache.set)
}
