package compiler

import (
	"testing"

	"github.com/embedscript/kong/store"
)

func TestResolveIncludePathRelative(t *testing.T) {
	got := ResolveIncludePath("/proj/src", "util/math")
	want := "/proj/src/util/math.ape"
	if got != want {
		t.Errorf("ResolveIncludePath = %q, want %q", got, want)
	}
}

func TestResolveIncludePathAbsolute(t *testing.T) {
	got := ResolveIncludePath("/proj/src", "/lib/json")
	want := "/lib/json.ape"
	if got != want {
		t.Errorf("ResolveIncludePath = %q, want %q", got, want)
	}
}

func TestResolveIncludePathCleans(t *testing.T) {
	got := ResolveIncludePath("/proj/src", "../util/math")
	want := "/proj/util/math.ape"
	if got != want {
		t.Errorf("ResolveIncludePath = %q, want %q", got, want)
	}
}

func TestModuleName(t *testing.T) {
	if got := ModuleName("/proj/src/util/math.ape"); got != "math" {
		t.Errorf("ModuleName = %q, want %q", got, "math")
	}
}

func TestNewModuleQualifiesNames(t *testing.T) {
	syms := []Symbol{
		{Name: "square", Scope: ModuleGlobalScope, Index: 0, Assignable: false},
	}
	mod := NewModule("math", syms)
	if mod.Name != "math" {
		t.Errorf("mod.Name = %q, want math", mod.Name)
	}
	if len(mod.Symbols) != 1 || mod.Symbols[0].Name != "math::square" {
		t.Fatalf("mod.Symbols = %+v", mod.Symbols)
	}
	if mod.Symbols[0].Index != 0 {
		t.Errorf("qualified symbol should keep its original index")
	}
}

func TestFileScopeLoadedModules(t *testing.T) {
	gs := store.New()
	fs := NewFileScope("/proj/src/main.ape", "let x = 1;", gs, 0)

	if fs.HasLoaded("math") {
		t.Errorf("fresh file scope should have no loaded modules")
	}
	fs.AddLoaded("math")
	if !fs.HasLoaded("math") {
		t.Errorf("AddLoaded should be reflected by HasLoaded")
	}
}
