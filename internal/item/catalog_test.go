package item

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewCatalogValidation(t *testing.T) {
	if _, err := NewCatalog([]Def{{ID: ""}}); err == nil {
		t.Error("empty id should fail")
	}
	if _, err := NewCatalog([]Def{{ID: "diamond", MaxStack: -1}}); err == nil {
		t.Error("negative max_stack should fail")
	}
	if _, err := NewCatalog([]Def{{ID: "diamond"}, {ID: "diamond"}}); err == nil {
		t.Error("duplicate kind should fail")
	}

	c, err := NewCatalog([]Def{{ID: "diamond"}})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if got := c.MaxStack("diamond"); got != DefaultMaxStack {
		t.Errorf("zero max_stack should default to %d, got %d", DefaultMaxStack, got)
	}
}

func TestCatalogLookups(t *testing.T) {
	c := DefaultCatalog()

	if got := c.MaxStack("ender_pearl"); got != 16 {
		t.Errorf("MaxStack(ender_pearl) = %d, want 16", got)
	}
	if got := c.MaxStack("never_heard_of_it"); got != DefaultMaxStack {
		t.Errorf("unknown kind should fall back to %d, got %d", DefaultMaxStack, got)
	}
	if !c.IsContainer("shulker_box") {
		t.Error("shulker_box should be a container")
	}
	if c.IsContainer("diamond") {
		t.Error("diamond should not be a container")
	}
	if got := c.DisplayName("iron_ingot"); got != "Iron Ingot" {
		t.Errorf("DisplayName(iron_ingot) = %q", got)
	}
	if got := c.DisplayName("mystery"); got != "mystery" {
		t.Errorf("unknown kind should display as its id, got %q", got)
	}
}

func TestLoadCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kinds.yaml")
	yaml := `kinds:
  - id: gold_ingot
    name: Gold Ingot
    max_stack: 64
  - id: bundle_bag
    max_stack: 1
    container: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if got := c.MaxStack("gold_ingot"); got != 64 {
		t.Errorf("MaxStack(gold_ingot) = %d", got)
	}
	if !c.IsContainer("bundle_bag") {
		t.Error("bundle_bag should be a container")
	}
	if len(c.Kinds()) != 2 {
		t.Errorf("Kinds() = %v", c.Kinds())
	}
}

func TestLoadCatalogEmptyPathUsesDefault(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if got := c.MaxStack("netherite_sword"); got != 1 {
		t.Errorf("default catalog missing netherite_sword, MaxStack = %d", got)
	}
}
