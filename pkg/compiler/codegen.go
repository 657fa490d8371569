package compiler

import (
	"strconv"

	"cminus/pkg/vm"
)

// ItemKind tags an evaluation stack entry.
type ItemKind int

const (
	ItemImm       ItemKind = iota // constant in Value
	ItemAddr                      // location in Addr
	ItemFunc                      // function row in Sym, named outside a call
	ItemOutput                    // the output built-in, named outside a call
	ItemCallee                    // callee of a call whose arguments follow
	ItemUndefined                 // identifier with no declaration
	ItemSlot                      // instruction index in Value
	ItemOp                        // operator text in Name
	ItemType                      // declared type in Type
	ItemName                      // identifier being declared in Name
)

// Item is one entry of the evaluation stack.
type Item struct {
	Kind  ItemKind
	Value int
	Addr  Address
	Sym   *Symbol
	Name  string
	Type  VarType
}

func immItem(v int) Item { return Item{Kind: ItemImm, Value: v} }
func addrItem(a Address) Item { return Item{Kind: ItemAddr, Addr: a} }
func slotItem(pc int) Item { return Item{Kind: ItemSlot, Value: pc} }
func tempItem(cell int) Item { return addrItem(DirectAddr(cell)) }
func typeItem(t VarType) Item { return Item{Kind: ItemType, Type: t} }
func nameItem(name string) Item { return Item{Kind: ItemName, Name: name} }
func opItem(op string) Item { return Item{Kind: ItemOp, Name: op} }
func undefinedItem(n string) Item { return Item{Kind: ItemUndefined, Name: n} }

var binaryOps = map[string]vm.Opcode{
	"+":  vm.OpADD,
	"-":  vm.OpSUB,
	"<":  vm.OpLT,
	"==": vm.OpEQ,
}

// Semantic error messages.
const (
	msgNotDefined   = "'%s' is not defined."
	msgNotFunction  = "'%s' is not a function."
	msgIllegalVoid  = "Illegal type of void for '%s'."
	msgArgCount     = "Mismatch in numbers of arguments of '%s'."
	msgArgType      = "Mismatch in type of argument %d of '%s'. Expected '%s' but got '%s' instead."
	msgOperandType  = "Type mismatch in operands, Got array instead of int."
	msgBreakOutside = "No 'while' found for 'break'."
)

const (
	breakSentinel    = -1
	returnSentinel   = -1
	defaultEntryName = "main"
)

type pendingReturn struct {
	slot  int // first of three reserved slots, or returnSentinel
	value vm.Arg
}

// CodeGen owns every piece of mutable compilation state: the instruction
// table, the evaluation stack, the break and return stacks and the symbol
// table. The parser drives it through Do.
type CodeGen struct {
	syms  *SymbolTable
	diag  *Diagnostics
	entry string

	code     []vm.Instruction
	ss       []Item
	breaks   []int
	returns  []pendingReturn
	lastTemp int

	fn     *Symbol // function being compiled
	params []Param // parameters collected for the current header
}

// NewCodeGen starts a program whose stack and frame pointers both point at
// the stack base. entry names the function execution falls into.
func NewCodeGen(syms *SymbolTable, diag *Diagnostics, entry string) *CodeGen {
	if entry == "" {
		entry = defaultEntryName
	}
	g := &CodeGen{syms: syms, diag: diag, entry: entry, lastTemp: TempBase}
	g.emit(vm.OpASSIGN, vm.Imm(StackBase), vm.Dir(SP))
	g.emit(vm.OpASSIGN, vm.Imm(StackBase), vm.Dir(BP))
	return g
}

// Code returns the instruction table. Reserved slots that were never
// patched hold the zero instruction.
func (g *CodeGen) Code() []vm.Instruction { return g.code }

func (g *CodeGen) Symbols() *SymbolTable { return g.syms }

// Stack returns the evaluation stack, bottom first.
func (g *CodeGen) Stack() []Item { return g.ss }

// ---------------------------------------------------------------------------
// Instruction table

func (g *CodeGen) pc() int { return len(g.code) }

func (g *CodeGen) emit(op vm.Opcode, args ...vm.Arg) int {
	g.code = append(g.code, vm.New(op, args...))
	return len(g.code) - 1
}

// reserve appends n empty slots and returns the index of the first.
func (g *CodeGen) reserve(n int) int {
	pc := len(g.code)
	g.code = append(g.code, make([]vm.Instruction, n)...)
	return pc
}

func (g *CodeGen) patch(pc int, op vm.Opcode, args ...vm.Arg) {
	if pc < 0 || pc >= len(g.code) {
		return
	}
	g.code[pc] = vm.New(op, args...)
}

func (g *CodeGen) newTemp() int {
	g.lastTemp += WordSize
	return g.lastTemp
}

// push stores a word at the stack pointer and advances it.
func (g *CodeGen) push(v vm.Arg) {
	g.emit(vm.OpASSIGN, v, vm.Ind(SP))
	g.emit(vm.OpADD, vm.Imm(WordSize), vm.Dir(SP), vm.Dir(SP))
}

// popTo retreats the stack pointer and loads the word into cell dst.
func (g *CodeGen) popTo(dst int) {
	g.emit(vm.OpSUB, vm.Dir(SP), vm.Imm(WordSize), vm.Dir(SP))
	g.emit(vm.OpASSIGN, vm.Ind(SP), vm.Dir(POP))
	g.emit(vm.OpASSIGN, vm.Dir(POP), vm.Dir(dst))
}

// frameAddr leaves BP+off in TMP.
func (g *CodeGen) frameAddr(off int) {
	g.emit(vm.OpASSIGN, vm.Dir(BP), vm.Dir(TMP))
	g.emit(vm.OpADD, vm.Imm(off), vm.Dir(TMP), vm.Dir(TMP))
}

// movValue loads the value of it into cell dst. Names that do not denote a
// value load 0.
func (g *CodeGen) movValue(it Item, dst int) {
	switch {
	case it.Kind == ItemImm:
		g.emit(vm.OpASSIGN, vm.Imm(it.Value), vm.Dir(dst))
	case it.Kind == ItemAddr && it.Addr.Mode == Offset:
		g.frameAddr(it.Addr.Value)
		g.emit(vm.OpASSIGN, vm.Ind(TMP), vm.Dir(dst))
	case it.Kind == ItemAddr:
		src, _ := it.Addr.operand()
		g.emit(vm.OpASSIGN, src, vm.Dir(dst))
	default:
		g.emit(vm.OpASSIGN, vm.Imm(0), vm.Dir(dst))
	}
}

// movAddress loads the address of the location it denotes into cell dst.
func (g *CodeGen) movAddress(it Item, dst int) {
	if it.Kind != ItemAddr {
		g.emit(vm.OpASSIGN, vm.Imm(0), vm.Dir(dst))
		return
	}
	switch it.Addr.Mode {
	case Direct:
		g.emit(vm.OpASSIGN, vm.Imm(it.Addr.Value), vm.Dir(dst))
	case Offset:
		g.frameAddr(it.Addr.Value)
		g.emit(vm.OpASSIGN, vm.Dir(TMP), vm.Dir(dst))
	case Indirect:
		g.emit(vm.OpASSIGN, vm.Dir(it.Addr.Value), vm.Dir(dst))
	}
}

// condArg turns a condition into a single jump operand.
func condArg(it Item) vm.Arg {
	switch it.Kind {
	case ItemImm:
		return vm.Imm(it.Value)
	case ItemAddr:
		if a, ok := it.Addr.operand(); ok {
			return a
		}
	}
	return vm.Imm(0)
}

// ---------------------------------------------------------------------------
// Evaluation stack

func (g *CodeGen) pushItem(it Item) { g.ss = append(g.ss, it) }

// popItem removes the top entry. After a syntax error the stack may be short;
// an empty stack yields an undefined item.
func (g *CodeGen) popItem() Item {
	if len(g.ss) == 0 {
		return Item{Kind: ItemUndefined}
	}
	it := g.ss[len(g.ss)-1]
	g.ss = g.ss[:len(g.ss)-1]
	return it
}

func (g *CodeGen) top() *Item {
	if len(g.ss) == 0 {
		return nil
	}
	return &g.ss[len(g.ss)-1]
}

func (g *CodeGen) popSlot() int {
	it := g.popItem()
	if it.Kind != ItemSlot {
		return -1
	}
	return it.Value
}

// typeOf reports TypeArray for an operand naming a whole array, and TypeInt
// for everything else.
func (g *CodeGen) typeOf(it Item) VarType {
	if it.Kind != ItemAddr || it.Addr.Mode == Indirect {
		return TypeInt
	}
	if row, ok := g.syms.LookupAddress(it.Addr); ok && row.Type == TypeArray {
		return TypeArray
	}
	return TypeInt
}

// checkOperands flags an array on the right of a scalar. An array on the left
// is accepted.
func (g *CodeGen) checkOperands(left, right Item, line int) {
	if g.typeOf(right) == TypeArray && g.typeOf(left) != TypeArray {
		g.diag.Semantic(line, msgOperandType)
	}
}

// ---------------------------------------------------------------------------
// Declarations

func (g *CodeGen) pid(lexeme string, _ int) { g.pushItem(nameItem(lexeme)) }

// pnum pushes a literal. The lexer has already rejected values out of range.
func (g *CodeGen) pnum(lexeme string, _ int) {
	v, _ := strconv.Atoi(lexeme)
	g.pushItem(immItem(v))
}

func (g *CodeGen) vtype(lexeme string, _ int) {
	if lexeme == "void" {
		g.pushItem(typeItem(TypeVoid))
		return
	}
	g.pushItem(typeItem(TypeInt))
}

func (g *CodeGen) defineVar(_ string, line int) {
	name := g.popItem().Name
	typ := g.popItem().Type
	if typ == TypeVoid {
		g.diag.Semantic(line, msgIllegalVoid, name)
	}
	_, addr := g.syms.DeclareVar(name, typ, 0)
	g.anchorSP(addr)
	g.push(vm.Imm(0))
}

// anchorSP points SP at a local's frame slot before its cells are pushed.
// Blocks that are skipped or repeated would otherwise leave SP out of step
// with the offsets assigned at compile time.
func (g *CodeGen) anchorSP(addr Address) {
	if addr.Mode != Offset {
		return
	}
	g.emit(vm.OpADD, vm.Dir(BP), vm.Imm(addr.Value), vm.Dir(SP))
}

// defineArr reserves the pointer cell and the elements, then stores the
// address of element 0 in the pointer cell.
func (g *CodeGen) defineArr(_ string, line int) {
	size := g.popItem().Value
	name := g.popItem().Name
	if g.popItem().Type == TypeVoid {
		g.diag.Semantic(line, msgIllegalVoid, name)
	}
	_, addr := g.syms.DeclareVar(name, TypeArray, size)
	g.anchorSP(addr)
	for i := 0; i <= size; i++ {
		g.push(vm.Imm(0))
	}
	g.movAddress(addrItem(addr), AX)
	g.emit(vm.OpADD, vm.Dir(AX), vm.Imm(WordSize), vm.Dir(BX))
	g.emit(vm.OpASSIGN, vm.Dir(BX), vm.Ind(AX))
}

func (g *CodeGen) pushScope(string, int) { g.syms.EnterScope() }
func (g *CodeGen) popScope(string, int) { g.syms.ExitScope() }

// ---------------------------------------------------------------------------
// Expressions

// pidAddr pushes whatever the identifier at the lookahead denotes.
func (g *CodeGen) pidAddr(lexeme string, line int) {
	if lexeme == "output" {
		g.pushItem(Item{Kind: ItemOutput, Name: lexeme})
		return
	}
	row, ok := g.syms.Lookup(lexeme)
	switch {
	case !ok:
		g.diag.Semantic(line, msgNotDefined, lexeme)
		g.pushItem(undefinedItem(lexeme))
	case row.Kind == KindFunction:
		g.pushItem(Item{Kind: ItemFunc, Sym: row, Name: lexeme})
	default:
		it := addrItem(row.Addr)
		it.Name = lexeme
		g.pushItem(it)
	}
}

func (g *CodeGen) pushOp(lexeme string, _ int) { g.pushItem(opItem(lexeme)) }

func (g *CodeGen) pop(string, int) { g.popItem() }

// assign stores the top value through the location below it. The location
// stays on the stack as the value of the assignment.
func (g *CodeGen) assign(_ string, line int) {
	rhs := g.popItem()
	lhs := Item{Kind: ItemUndefined}
	if t := g.top(); t != nil {
		lhs = *t
	}
	g.movAddress(lhs, BX)
	g.movValue(rhs, AX)
	g.checkOperands(lhs, rhs, line)
	g.emit(vm.OpASSIGN, vm.Dir(AX), vm.Ind(BX))
}

// index computes base + index*4 and pushes the element as an indirect
// location.
func (g *CodeGen) index(string, int) {
	idx := g.popItem()
	base := g.popItem()
	g.movValue(base, AX)
	g.movValue(idx, EX)
	g.emit(vm.OpMULT, vm.Dir(EX), vm.Imm(WordSize), vm.Dir(BX))
	t := g.newTemp()
	g.emit(vm.OpADD, vm.Dir(AX), vm.Dir(BX), vm.Dir(t))
	g.pushItem(addrItem(IndirectAddr(t)))
}

func (g *CodeGen) op(_ string, line int) {
	right := g.popItem()
	operator := g.popItem()
	left := g.popItem()
	g.checkOperands(left, right, line)

	opcode, ok := binaryOps[operator.Name]
	if !ok {
		opcode = vm.OpADD
	}
	t := g.newTemp()
	g.movValue(left, AX)
	g.movValue(right, BX)
	g.emit(opcode, vm.Dir(AX), vm.Dir(BX), vm.Dir(t))
	g.pushItem(tempItem(t))
}

// mult has no operator marker: the two operands are the top of the stack.
func (g *CodeGen) mult(_ string, line int) {
	right := g.popItem()
	left := g.popItem()
	g.checkOperands(left, right, line)

	t := g.newTemp()
	g.movValue(right, AX)
	g.movValue(left, BX)
	g.emit(vm.OpMULT, vm.Dir(AX), vm.Dir(BX), vm.Dir(t))
	g.pushItem(tempItem(t))
}

func (g *CodeGen) negate(string, int) {
	it := g.popItem()
	t := g.newTemp()
	g.movValue(it, AX)
	g.emit(vm.OpSUB, vm.Imm(0), vm.Dir(AX), vm.Dir(t))
	g.pushItem(tempItem(t))
}

// ---------------------------------------------------------------------------
// Statements

// save reserves the conditional jump slot after a condition. A frame
// relative condition is copied to a temporary first so the jump can name it
// in one operand.
func (g *CodeGen) save(string, int) {
	if t := g.top(); t != nil && t.Kind == ItemAddr && t.Addr.Mode == Offset {
		tmp := g.newTemp()
		g.movValue(*t, tmp)
		*t = tempItem(tmp)
	}
	g.pushItem(slotItem(g.reserve(1)))
}

// jpfSave closes the then-branch of an if with an else: the condition jumps
// past the slot reserved here for leaving the then-branch.
func (g *CodeGen) jpfSave(string, int) {
	slot := g.popSlot()
	cond := g.popItem()
	g.patch(slot, vm.OpJPF, condArg(cond), vm.Dir(g.pc()+1))
	g.pushItem(slotItem(g.reserve(1)))
}

func (g *CodeGen) jump(string, int) {
	slot := g.popSlot()
	g.patch(slot, vm.OpJP, vm.Dir(g.pc()))
}

// jpf closes an if without an else.
func (g *CodeGen) jpf(string, int) {
	slot := g.popSlot()
	cond := g.popItem()
	g.patch(slot, vm.OpJPF, condArg(cond), vm.Dir(g.pc()))
}

func (g *CodeGen) label(string, int) { g.pushItem(slotItem(g.pc())) }

// while emits the backward jump to the condition and points the exit jump
// just past it.
func (g *CodeGen) while(string, int) {
	slot := g.popSlot()
	cond := g.popItem()
	entry := g.popSlot()
	g.patch(slot, vm.OpJPF, condArg(cond), vm.Dir(g.pc()+1))
	g.emit(vm.OpJP, vm.Dir(entry))
}

func (g *CodeGen) beginBreak(string, int) { g.breaks = append(g.breaks, breakSentinel) }

// breakLoop reserves an exit slot in the innermost loop frame. The error for
// a stray break is tagged one line above the lookahead.
func (g *CodeGen) breakLoop(_ string, line int) {
	if len(g.breaks) == 0 {
		g.diag.Semantic(line-1, msgBreakOutside)
		return
	}
	g.breaks = append(g.breaks, g.reserve(1))
}

func (g *CodeGen) endBreak(string, int) {
	i := len(g.breaks) - 1
	for ; i >= 0 && g.breaks[i] != breakSentinel; i-- {
		g.patch(g.breaks[i], vm.OpJP, vm.Dir(g.pc()))
	}
	if i < 0 {
		i = 0
	}
	g.breaks = g.breaks[:i]
}
