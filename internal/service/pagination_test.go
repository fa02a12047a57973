package service

import (
	"testing"
)

func TestPaginateTotalPages(t *testing.T) {
	cases := []struct {
		name       string
		n          int
		limit      int
		totalPages int
	}{
		{"empty input still has one page", 0, 10, 1},
		{"exact multiple", 10, 5, 2},
		{"remainder adds a page", 11, 5, 3},
		{"single item", 1, 10, 1},
		{"limit larger than input", 3, 100, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := make([]int, tc.n)
			p := Paginate(items, 1, tc.limit)
			if p.TotalPages != tc.totalPages {
				t.Errorf("totalPages = %d, want %d", p.TotalPages, tc.totalPages)
			}
		})
	}
}

func TestPaginateConcatenationReproducesSequence(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	const limit = 5
	first := Paginate(items, 1, limit)

	var concat []int
	for page := 1; page <= first.TotalPages; page++ {
		p := Paginate(items, page, limit)
		if (page < first.TotalPages) != p.HasNextPages {
			t.Errorf("page %d: hasNextPages = %v", page, p.HasNextPages)
		}
		concat = append(concat, p.Data...)
	}

	if len(concat) != len(items) {
		t.Fatalf("concatenated %d items, want %d", len(concat), len(items))
	}
	for i := range items {
		if concat[i] != items[i] {
			t.Fatalf("concat[%d] = %d, want %d", i, concat[i], items[i])
		}
	}
}

func TestPaginatePastTheEnd(t *testing.T) {
	p := Paginate([]string{"a", "b", "c"}, 5, 2)
	if len(p.Data) != 0 {
		t.Errorf("data = %v, want empty", p.Data)
	}
	if p.TotalPages != 2 {
		t.Errorf("totalPages = %d, want 2", p.TotalPages)
	}
	if p.HasNextPages {
		t.Error("hasNextPages = true past the end")
	}
}

func TestPaginateDeterministic(t *testing.T) {
	items := []string{"d", "c", "b", "a"}
	first := Paginate(items, 2, 2)
	second := Paginate(items, 2, 2)
	if len(first.Data) != len(second.Data) {
		t.Fatal("repeated calls returned different sizes")
	}
	for i := range first.Data {
		if first.Data[i] != second.Data[i] {
			t.Fatalf("repeated calls differ at %d: %q vs %q", i, first.Data[i], second.Data[i])
		}
	}
}

func TestNormalizePaging(t *testing.T) {
	page, limit := NormalizePaging(0, -3)
	if page != DefaultPage || limit != DefaultLimit {
		t.Errorf("got (%d, %d), want defaults (%d, %d)", page, limit, DefaultPage, DefaultLimit)
	}
	page, limit = NormalizePaging(3, 25)
	if page != 3 || limit != 25 {
		t.Errorf("valid values were rewritten: (%d, %d)", page, limit)
	}
}
