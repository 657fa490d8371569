package compiler

import "cminus/pkg/vm"

// Function layout, from the caller's point of view:
//
//	[return address][arg 1]...[arg n][saved BP] <- BP
//	[local 0][local 1]...
//
// so the last argument sits at BP-8 and locals start at BP+0. Every function
// is preceded by one slot that jumps over its body; for the entry function
// that slot becomes a no-op so execution falls into it.

// beginFunc reserves the skip slot ahead of the function body.
func (g *CodeGen) beginFunc(string, int) {
	name := g.popItem()
	typ := g.popItem()
	slot := g.reserve(1)
	g.pushItem(slotItem(slot))
	g.pushItem(Item{Kind: ItemName, Name: name.Name, Type: typ.Type})
	g.syms.BeginFunction()
	g.params = g.params[:0]
}

func (g *CodeGen) ptypeInt(string, int) { g.pushItem(typeItem(TypeInt)) }
func (g *CodeGen) ptypeArr(string, int) { g.pushItem(typeItem(TypeArray)) }

func (g *CodeGen) param(_ string, line int) {
	ptype := g.popItem().Type
	name := g.popItem().Name
	if g.popItem().Type == TypeVoid {
		g.diag.Semantic(line, msgIllegalVoid, name)
	}
	g.params = append(g.params, Param{Name: name, Type: ptype})
}

func (g *CodeGen) defineParams(string, int) { g.syms.DeclareParams(g.params) }

// createFunc enters the function row and emits the prologue: push BP, then
// BP = SP.
func (g *CodeGen) createFunc(string, int) {
	header := Item{}
	if t := g.top(); t != nil {
		header = *t
	}

	types := make([]VarType, len(g.params))
	for i, p := range g.params {
		types[i] = p.Type
	}
	fn := Symbol{
		Name:    header.Name,
		Addr:    DirectAddr(g.pc()),
		Depth:   g.syms.Depth(),
		Len:     len(g.params),
		RetAddr: g.newTemp(),
		Kind:    KindFunction,
		Type:    header.Type,
		Params:  types,
	}
	if row, inserted := g.syms.Insert(fn); inserted {
		g.fn = row
	} else {
		g.fn = &fn
	}

	g.push(vm.Dir(BP))
	g.emit(vm.OpASSIGN, vm.Dir(SP), vm.Dir(BP))
}

// endFunc emits the epilogue. The word on top of the stack is the return
// value pushed by a return statement.
func (g *CodeGen) endFunc(string, int) {
	fn := g.fn
	if fn == nil {
		fn = &Symbol{RetAddr: g.newTemp()}
	}

	g.popTo(fn.RetAddr)
	g.emit(vm.OpASSIGN, vm.Dir(BP), vm.Dir(SP))
	g.popTo(BP)
	g.emit(vm.OpSUB, vm.Dir(SP), vm.Imm(WordSize*fn.Len), vm.Dir(SP))

	name := g.popItem().Name
	slot := g.popSlot()
	if name == g.entry {
		g.patch(slot, vm.OpASSIGN, vm.Imm(0), vm.Dir(TMP))
	} else {
		g.popTo(AX)
		g.push(vm.Dir(fn.RetAddr))
		g.emit(vm.OpJP, vm.Ind(AX))
		g.patch(slot, vm.OpJP, vm.Dir(g.pc()))
	}
	g.fn = nil
}

func (g *CodeGen) beginReturn(string, int) {
	g.returns = append(g.returns, pendingReturn{slot: returnSentinel})
}

// returnValue copies the value to a temporary and reserves the three slots
// that will push it and jump to the epilogue.
func (g *CodeGen) returnValue(string, int) {
	it := g.popItem()
	t := g.newTemp()
	g.movValue(it, t)
	g.returns = append(g.returns, pendingReturn{slot: g.reserve(3), value: vm.Dir(t)})
}

func (g *CodeGen) returnVoid(string, int) {
	g.returns = append(g.returns, pendingReturn{slot: g.reserve(3), value: vm.Imm(0)})
}

// endReturn points every return of the function at the epilogue, which
// starts at the current pc.
func (g *CodeGen) endReturn(string, int) {
	i := len(g.returns) - 1
	for ; i >= 0 && g.returns[i].slot != returnSentinel; i-- {
		r := g.returns[i]
		g.patch(r.slot, vm.OpASSIGN, r.value, vm.Ind(SP))
		g.patch(r.slot+1, vm.OpADD, vm.Imm(WordSize), vm.Dir(SP), vm.Dir(SP))
		g.patch(r.slot+2, vm.OpJP, vm.Dir(g.pc()))
	}
	if i < 0 {
		i = 0
	}
	g.returns = g.returns[:i]
}
