package compiler

import "cminus/pkg/vm"

const builtinOutput = "output"

// callBegin marks the entry below the '(' as the callee, so arguments that
// are themselves function names cannot be mistaken for it.
func (g *CodeGen) callBegin(_ string, line int) {
	it := g.popItem()
	callee := Item{Kind: ItemCallee, Name: it.Name}
	switch it.Kind {
	case ItemFunc:
		callee.Sym = it.Sym
	case ItemOutput:
		callee.Name = builtinOutput
	case ItemAddr:
		g.diag.Semantic(line, msgNotFunction, it.Name)
	}
	g.pushItem(callee)
}

// call pops the callee and its arguments and pushes the call's value.
func (g *CodeGen) call(_ string, line int) {
	i := len(g.ss) - 1
	for ; i >= 0 && g.ss[i].Kind != ItemCallee; i-- {
	}
	if i < 0 {
		g.pushItem(immItem(0))
		return
	}
	callee := g.ss[i]
	args := append([]Item(nil), g.ss[i+1:]...)
	g.ss = g.ss[:i]

	switch {
	case callee.Sym == nil && callee.Name == builtinOutput:
		g.output(args, line)
		g.pushItem(immItem(0))
		return
	case callee.Sym == nil:
		g.pushItem(immItem(0))
		return
	}

	fn := callee.Sym
	if len(args) != fn.Len {
		g.diag.Semantic(line, msgArgCount, fn.Name)
		for len(args) < fn.Len {
			args = append(args, immItem(0))
		}
		args = args[:fn.Len]
	} else {
		for j, arg := range args {
			want := TypeInt
			if j < len(fn.Params) {
				want = fn.Params[j]
			}
			if got := g.typeOf(arg); got != want {
				g.diag.Semantic(line, msgArgType, j+1, fn.Name, want, got)
			}
		}
	}

	live := g.liveTemps()
	for _, cell := range live {
		g.push(vm.Dir(cell))
	}

	// Reserve the return address cell, remember where it is, then push the
	// arguments first to last.
	g.emit(vm.OpASSIGN, vm.Dir(SP), vm.Dir(DX))
	g.push(vm.Imm(0))
	for _, arg := range args {
		g.movValue(arg, AX)
		g.push(vm.Dir(AX))
	}
	g.emit(vm.OpASSIGN, vm.Imm(g.pc()+2), vm.Ind(DX))
	g.emit(vm.OpJP, vm.Dir(fn.Addr.Value))

	t := g.newTemp()
	g.popTo(t)
	for j := len(live) - 1; j >= 0; j-- {
		g.popTo(live[j])
	}
	g.pushItem(tempItem(t))
}

// liveTemps lists the temporaries still referenced by the evaluation stack.
// A recursive activation reuses the same cells, so a call saves them on the
// machine stack and restores them afterwards.
func (g *CodeGen) liveTemps() []int {
	var cells []int
	seen := make(map[int]bool)
	for _, it := range g.ss {
		if it.Kind != ItemAddr || it.Addr.Mode == Offset || it.Addr.Value <= TempBase {
			continue
		}
		if !seen[it.Addr.Value] {
			seen[it.Addr.Value] = true
			cells = append(cells, it.Addr.Value)
		}
	}
	return cells
}

// output prints its single argument. Its argument is never type checked.
func (g *CodeGen) output(args []Item, line int) {
	if len(args) != 1 {
		g.diag.Semantic(line, msgArgCount, builtinOutput)
		return
	}
	g.movValue(args[0], AX)
	g.emit(vm.OpPRINT, vm.Dir(AX))
}
