package compiler

import "fmt"

// Action names a semantic routine referenced as "#name" in the grammar.
type Action int

const (
	ActNone Action = iota

	// declarations
	ActPid
	ActPnum
	ActVtype
	ActDefineVar
	ActDefineArr

	// functions
	ActBeginFunc
	ActParam
	ActPtypeInt
	ActPtypeArr
	ActDefineParams
	ActCreateFunc
	ActBeginReturn
	ActReturn
	ActReturnVoid
	ActEndReturn
	ActEndFunc

	// scopes and statements
	ActPushScope
	ActPopScope
	ActPop
	ActBreak
	ActSave
	ActJpfSave
	ActJump
	ActJpf
	ActBeginBreak
	ActLabel
	ActWhile
	ActEndBreak

	// expressions
	ActPidAddr
	ActPushOp
	ActAssign
	ActIndex
	ActOp
	ActMult
	ActNegate
	ActCallBegin
	ActCall

	numActions
)

var actionNames = [...]string{
	ActNone:         "",
	ActPid:          "pid",
	ActPnum:         "pnum",
	ActVtype:        "vtype",
	ActDefineVar:    "define_var",
	ActDefineArr:    "define_arr",
	ActBeginFunc:    "begin_func",
	ActParam:        "param",
	ActPtypeInt:     "ptype_int",
	ActPtypeArr:     "ptype_arr",
	ActDefineParams: "define_params",
	ActCreateFunc:   "create_func",
	ActBeginReturn:  "begin_return",
	ActReturn:       "return",
	ActReturnVoid:   "return_void",
	ActEndReturn:    "end_return",
	ActEndFunc:      "end_func",
	ActPushScope:    "push_scope",
	ActPopScope:     "pop_scope",
	ActPop:          "pop",
	ActBreak:        "break",
	ActSave:         "save",
	ActJpfSave:      "jpf_save",
	ActJump:         "jump",
	ActJpf:          "jpf",
	ActBeginBreak:   "begin_break",
	ActLabel:        "label",
	ActWhile:        "while",
	ActEndBreak:     "end_break",
	ActPidAddr:      "pid_addr",
	ActPushOp:       "push_op",
	ActAssign:       "assign",
	ActIndex:        "index",
	ActOp:           "op",
	ActMult:         "mult",
	ActNegate:       "negate",
	ActCallBegin:    "call_begin",
	ActCall:         "call",
}

func (a Action) String() string {
	if a > ActNone && a < numActions {
		return "#" + actionNames[a]
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, numActions)
	for a := ActNone + 1; a < numActions; a++ {
		m[actionNames[a]] = a
	}
	return m
}()

// LookupAction resolves a marker name (without the '#').
func LookupAction(name string) (Action, bool) {
	a, ok := actionsByName[name]
	return a, ok
}

// actionFunc is the signature shared by every semantic routine: the lexeme
// and line of the current lookahead.
type actionFunc func(g *CodeGen, lexeme string, line int)

// dispatch is indexed by Action.
var dispatch = [numActions]actionFunc{
	ActPid:          (*CodeGen).pid,
	ActPnum:         (*CodeGen).pnum,
	ActVtype:        (*CodeGen).vtype,
	ActDefineVar:    (*CodeGen).defineVar,
	ActDefineArr:    (*CodeGen).defineArr,
	ActBeginFunc:    (*CodeGen).beginFunc,
	ActParam:        (*CodeGen).param,
	ActPtypeInt:     (*CodeGen).ptypeInt,
	ActPtypeArr:     (*CodeGen).ptypeArr,
	ActDefineParams: (*CodeGen).defineParams,
	ActCreateFunc:   (*CodeGen).createFunc,
	ActBeginReturn:  (*CodeGen).beginReturn,
	ActReturn:       (*CodeGen).returnValue,
	ActReturnVoid:   (*CodeGen).returnVoid,
	ActEndReturn:    (*CodeGen).endReturn,
	ActEndFunc:      (*CodeGen).endFunc,
	ActPushScope:    (*CodeGen).pushScope,
	ActPopScope:     (*CodeGen).popScope,
	ActPop:          (*CodeGen).pop,
	ActBreak:        (*CodeGen).breakLoop,
	ActSave:         (*CodeGen).save,
	ActJpfSave:      (*CodeGen).jpfSave,
	ActJump:         (*CodeGen).jump,
	ActJpf:          (*CodeGen).jpf,
	ActBeginBreak:   (*CodeGen).beginBreak,
	ActLabel:        (*CodeGen).label,
	ActWhile:        (*CodeGen).while,
	ActEndBreak:     (*CodeGen).endBreak,
	ActPidAddr:      (*CodeGen).pidAddr,
	ActPushOp:       (*CodeGen).pushOp,
	ActAssign:       (*CodeGen).assign,
	ActIndex:        (*CodeGen).index,
	ActOp:           (*CodeGen).op,
	ActMult:         (*CodeGen).mult,
	ActNegate:       (*CodeGen).negate,
	ActCallBegin:    (*CodeGen).callBegin,
	ActCall:         (*CodeGen).call,
}

// Do runs the routine for a.
func (g *CodeGen) Do(a Action, lexeme string, line int) {
	if a <= ActNone || a >= numActions || dispatch[a] == nil {
		panic(fmt.Sprintf("no semantic routine for %v", a))
	}
	dispatch[a](g, lexeme, line)
}
