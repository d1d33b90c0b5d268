package roots

import (
	"github.com/gcforge/handlekit/pkg/gc"
	"github.com/gcforge/handlekit/roots/table"
)

// RootVisit is the diagnostics notification for one handle: its type, its
// root-kind flags, the primary referent, and, for dependent handles, the
// secondary. Observability only; mutating nothing.
type RootVisit func(typ gc.Type, kind gc.RootKind, primary gc.ObjectRef, secondary gc.ObjectRef)

// TraceForDiagnostics walks every handle this worker owns and reports it to
// profiling/trace tooling. Unlike the collection passes there is no age
// filtering: tooling wants the whole population.
func (s *Subsystem) TraceForDiagnostics(sc *gc.ScanContext, visit RootVisit) {
	all := gc.AllTypes()
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.Enumerate(all, func(_ table.Handle, typ gc.Type, primary gc.ObjectRef, extra gc.ExtraInfo) bool {
			var secondary gc.ObjectRef
			if typ == gc.TypeDependent {
				secondary = gc.ObjectRef(extra)
			}
			visit(typ, gc.RootKindOf(typ, extra), primary, secondary)
			return true
		})
	})
}
