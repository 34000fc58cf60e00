package verify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MrRacoon/pact/internal/model"
)

func renderModel(m *model.Model) string {
	var sb strings.Builder
	sb.WriteString("  model:")
	for _, b := range m.Args {
		fmt.Fprintf(&sb, "\n    %s = %s", b.Name, b.Value)
	}
	for _, b := range m.Tags {
		fmt.Fprintf(&sb, "\n    %s = %s (%s)", b.Name, b.Value, b.What)
	}
	return sb.String()
}

// Render formats a whole module report: per function, every property
// verdict followed by every invariant verdict grouped by table.
func Render(mc *ModuleChecks) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %s\n", mc.Module)

	funs := make([]string, 0, len(mc.Properties))
	for name := range mc.Properties {
		funs = append(funs, name)
	}
	sort.Strings(funs)

	for _, fun := range funs {
		fmt.Fprintf(&sb, "  %s\n", fun)
		for _, r := range mc.Properties[fun] {
			writeIndented(&sb, r.String(), "    ")
		}
		if fi := mc.Invariants[fun]; fi != nil {
			if fi.Failure != nil {
				writeIndented(&sb, "invariants: "+fi.Failure.String(), "    ")
				continue
			}
			tabs := make([]string, 0, len(fi.Tables))
			for t := range fi.Tables {
				tabs = append(tabs, t)
			}
			sort.Strings(tabs)
			for _, t := range tabs {
				for _, r := range fi.Tables[t] {
					writeIndented(&sb, fmt.Sprintf("table %s: %s", t, r.String()), "    ")
				}
			}
		}
	}
	return sb.String()
}

// Passed reports whether every result in the module is a success.
func Passed(mc *ModuleChecks) bool {
	for _, rs := range mc.Properties {
		for _, r := range rs {
			if !r.Status.Passed() {
				return false
			}
		}
	}
	for _, fi := range mc.Invariants {
		if fi == nil {
			continue
		}
		if fi.Failure != nil {
			return false
		}
		for _, rs := range fi.Tables {
			for _, r := range rs {
				if !r.Status.Passed() {
					return false
				}
			}
		}
	}
	return true
}

func writeIndented(sb *strings.Builder, s, indent string) {
	for _, line := range strings.Split(s, "\n") {
		sb.WriteString(indent + line + "\n")
	}
}
