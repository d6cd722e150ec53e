package mcptools

import "testing"

func TestToolFilterEmptyAllowsAll(t *testing.T) {
	f := NewToolFilter("")
	for _, name := range []string{"finance_summary", "kb_get_page", "anything"} {
		if !f.Enabled(name) {
			t.Errorf("empty filter should enable %q", name)
		}
	}
}

func TestToolFilterAllowlist(t *testing.T) {
	f := NewToolFilter("finance_summary, kb_list_pages")

	if !f.Enabled("finance_summary") {
		t.Error("finance_summary should be enabled")
	}
	if !f.Enabled("kb_list_pages") {
		t.Error("kb_list_pages should be enabled despite leading whitespace")
	}
	if f.Enabled("finance_delete_transaction") {
		t.Error("finance_delete_transaction should be disabled")
	}
}

func TestToolFilterWhitespaceOnlySpec(t *testing.T) {
	f := NewToolFilter(" , ,")
	if !f.Enabled("msg_post_message") {
		t.Error("whitespace-only spec should behave like an empty one")
	}
}
