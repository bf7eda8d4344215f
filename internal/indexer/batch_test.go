package indexer

import (
	"testing"

	"github.com/hyperjump/kensaku/internal/models"
)

func TestBatch(t *testing.T) {
	c := &models.Catalog{
		Organizations: []*models.Organization{{Name: "a"}, {Name: "b"}, {Name: "c"}},
		Services:      []*models.Service{{Name: "s"}},
		CaseStudies:   []*models.CaseStudy{{Title: "x"}},
	}
	batches := Batch(c, 2)
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	if len(batches[0].Organizations) != 2 {
		t.Errorf("batch 0 = %+v", batches[0])
	}
	if len(batches[1].Organizations) != 1 || len(batches[1].Services) != 1 {
		t.Errorf("batch 1 = %+v", batches[1])
	}
	if len(batches[2].CaseStudies) != 1 {
		t.Errorf("batch 2 = %+v", batches[2])
	}
	total := 0
	for _, b := range batches {
		if b.Len() > 2 {
			t.Errorf("batch too large: %d", b.Len())
		}
		total += b.Len()
	}
	if total != c.Len() {
		t.Errorf("total = %d, want %d", total, c.Len())
	}
}

func TestBatch_empty(t *testing.T) {
	if got := Batch(nil, 10); got != nil {
		t.Errorf("Batch(nil) = %v", got)
	}
	if got := Batch(&models.Catalog{}, 10); got != nil {
		t.Errorf("Batch(empty) = %v", got)
	}
	if got := Batch(&models.Catalog{Services: []*models.Service{{}}}, 0); len(got) != 1 {
		t.Errorf("default size: got %d batches", len(got))
	}
}
