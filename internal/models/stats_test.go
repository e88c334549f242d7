package models

import (
	"sync"
	"testing"
)

// TestRuntimeStats_Counters учёт счётчиков и множеств неудач
func TestRuntimeStats_Counters(t *testing.T) {
	s := NewRuntimeStats()

	s.PageProcessed(50)
	s.PageProcessed(48)
	s.SupplierDetailed()
	s.DuplicateFound()
	s.DuplicateFound()
	s.PageFailed(7)
	s.PageFailed(7) // повтор не раздувает множество
	s.PageFailed(3)
	s.SupplierFailed("abc")

	snap := s.Snapshot()

	if snap.ProcessedPages != 2 {
		t.Errorf("ProcessedPages = %d, ожидалось 2", snap.ProcessedPages)
	}
	if snap.FoundSuppliers != 98 {
		t.Errorf("FoundSuppliers = %d, ожидалось 98", snap.FoundSuppliers)
	}
	if snap.DetailedSuppliers != 1 {
		t.Errorf("DetailedSuppliers = %d, ожидалось 1", snap.DetailedSuppliers)
	}
	if snap.DuplicatesFound != 2 {
		t.Errorf("DuplicatesFound = %d, ожидалось 2", snap.DuplicatesFound)
	}
	if len(snap.FailedPages) != 2 {
		t.Fatalf("FailedPages = %v, ожидалось два элемента", snap.FailedPages)
	}
	// Срез отсортирован для стабильного отображения
	if snap.FailedPages[0] != 3 || snap.FailedPages[1] != 7 {
		t.Errorf("FailedPages = %v, ожидалось [3 7]", snap.FailedPages)
	}
	if len(snap.FailedSuppliers) != 1 || snap.FailedSuppliers[0] != "abc" {
		t.Errorf("FailedSuppliers = %v, ожидалось [abc]", snap.FailedSuppliers)
	}
}

// TestRuntimeStats_ConcurrentUpdates конкурентные обновления не теряются
func TestRuntimeStats_ConcurrentUpdates(t *testing.T) {
	s := NewRuntimeStats()

	const workers = 20
	const perWorker = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.PageProcessed(1)
				s.DuplicateFound()
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	want := workers * perWorker
	if snap.ProcessedPages != want {
		t.Errorf("ProcessedPages = %d, ожидалось %d", snap.ProcessedPages, want)
	}
	if snap.FoundSuppliers != want {
		t.Errorf("FoundSuppliers = %d, ожидалось %d", snap.FoundSuppliers, want)
	}
	if snap.DuplicatesFound != want {
		t.Errorf("DuplicatesFound = %d, ожидалось %d", snap.DuplicatesFound, want)
	}
}

// TestStatsSnapshot_Rates скорость при нулевом времени не делит на ноль
func TestStatsSnapshot_Rates(t *testing.T) {
	snap := StatsSnapshot{ProcessedPages: 10, FoundSuppliers: 500}

	if rate := snap.PagesPerMinute(); rate != 0 {
		t.Errorf("PagesPerMinute при нулевом Elapsed = %f, ожидался 0", rate)
	}
	if rate := snap.SuppliersPerMinute(); rate != 0 {
		t.Errorf("SuppliersPerMinute при нулевом Elapsed = %f, ожидался 0", rate)
	}
}
