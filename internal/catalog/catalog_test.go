package catalog

import "testing"

func TestSearchTemplates_Query(t *testing.T) {
	got := SearchTemplates(Filter{Query: "slack"}, "", false, 0, 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 template for query slack, got %d", len(got))
	}
	if got[0].ID != "tpl_002" {
		t.Errorf("expected tpl_002, got %q", got[0].ID)
	}
}

func TestSearchTemplates_CategoryAndComplexity(t *testing.T) {
	got := SearchTemplates(Filter{Category: "Communication", Complexity: "low"}, "", false, 0, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 low-complexity communication templates, got %d", len(got))
	}
	for _, tpl := range got {
		if tpl.Category != "Communication" || tpl.Complexity != "low" {
			t.Errorf("filter leaked: %+v", tpl)
		}
	}
}

func TestSearchTemplates_SortByExecutionsDesc(t *testing.T) {
	got := SearchTemplates(Filter{}, "executions", true, 0, 0)
	for i := 1; i < len(got); i++ {
		if got[i-1].Executions < got[i].Executions {
			t.Errorf("not sorted descending at %d: %d < %d", i, got[i-1].Executions, got[i].Executions)
		}
	}
}

func TestSearchTemplates_Pagination(t *testing.T) {
	all := SearchTemplates(Filter{}, "", false, 0, 0)
	if len(all) < 3 {
		t.Fatalf("fixture too small for pagination test: %d", len(all))
	}

	page := SearchTemplates(Filter{}, "", false, 2, 1)
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	if page[0].ID != all[1].ID {
		t.Errorf("offset not applied: got %q want %q", page[0].ID, all[1].ID)
	}

	empty := SearchTemplates(Filter{}, "", false, 10, 100)
	if len(empty) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(empty))
	}
}

func TestGetTemplate(t *testing.T) {
	if tpl := GetTemplate("tpl_001"); tpl == nil || tpl.Name != "OpenAI Content Generator" {
		t.Errorf("unexpected template: %+v", tpl)
	}
	if tpl := GetTemplate("nope"); tpl != nil {
		t.Errorf("expected nil for unknown id, got %+v", tpl)
	}
}

func TestStats(t *testing.T) {
	s := Stats("2024-01-16T00:00:00Z")
	if s.TotalTemplates != 4 {
		t.Errorf("expected 4 templates, got %d", s.TotalTemplates)
	}
	if s.TotalExecutions != 156+342+89+23 {
		t.Errorf("unexpected execution total: %d", s.TotalExecutions)
	}
	if len(s.Categories) != 3 {
		t.Errorf("expected 3 categories, got %v", s.Categories)
	}
}

func TestDemoWorkflows_ActiveFilter(t *testing.T) {
	active := true
	got := DemoWorkflows(&active)
	for _, w := range got {
		if !w.Active {
			t.Errorf("inactive workflow leaked: %+v", w)
		}
	}
	if len(DemoWorkflows(nil)) != 2 {
		t.Errorf("expected 2 demo workflows")
	}
}

func TestDemoExecutions_Scoped(t *testing.T) {
	got := DemoExecutions("wf_001", 10)
	if len(got) != 1 || got[0].ID != "exec_001" {
		t.Errorf("unexpected executions: %+v", got)
	}
	if len(DemoExecutions("", 1)) != 1 {
		t.Errorf("limit not applied")
	}
}
