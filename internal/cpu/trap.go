package cpu

// Trap vectors, kept as named constants exactly as
// davecheney-pdp11/trap.go's INTBUS/INTINVAL/... group, renamed into this
// package since the CORE has no separate UNIBUS/trap.go split.
const (
	VectorBus      uint16 = 004 // bus error / odd address
	VectorReserved uint16 = 010 // reserved (undecodable) opcode
	VectorBPT      uint16 = 014
	VectorIOT      uint16 = 020
	VectorEMT      uint16 = 030
	VectorTrap     uint16 = 034
)

// trapSignal unwinds the current instruction to the single point in
// ExecuteSingleInstruction that converts it into a PSW/PC vector transfer,
// exactly as davecheney-pdp11's trap type and JiYou-pdp11's recover-based
// Step do; only the recovery site moves from a whole-machine Run loop to
// a single-instruction boundary.
type trapSignal struct {
	vector uint16
}

// pendingInterrupt is a priority-ordered device interrupt request awaiting
// dispatch between instructions (spec.md §4.5).
type pendingInterrupt struct {
	vector   uint16
	priority uint16
}

// RaiseInterrupt queues a device interrupt at the given vector and
// priority, inserted so the queue stays priority-then-vector ordered.
// This generalizes JiYou-pdp11's package-level `interrupts []intr` /
// `interrupt(vec, pri int)` into CPU-owned state — spec.md §9 forbids
// global state so multiple Computer instances can coexist in tests.
func (c *CPU) RaiseInterrupt(vector, priority uint16) {
	i := 0
	for ; i < len(c.pending); i++ {
		p := c.pending[i]
		if p.priority < priority || (p.priority == priority && p.vector >= vector) {
			break
		}
	}
	c.pending = append(c.pending, pendingInterrupt{})
	copy(c.pending[i+1:], c.pending[i:])
	c.pending[i] = pendingInterrupt{vector: vector, priority: priority}
}

// checkInterrupts dispatches the highest-priority pending interrupt if its
// priority exceeds the CPU's current PSW priority, per spec.md §4.5. It
// reports whether a dispatch happened, so ExecuteSingleInstruction can
// treat "take an interrupt" and "execute the next instruction" as the two
// distinct things spec.md §4.5 calls them ("between instructions"), rather
// than fusing a trap dispatch with the first instruction of the handler.
func (c *CPU) checkInterrupts() bool {
	if len(c.pending) == 0 {
		return false
	}
	top := c.pending[0]
	if top.priority <= c.priority() {
		return false
	}
	c.pending = c.pending[1:]
	c.trapAt(top.vector)
	return true
}

// trapAt performs the PDP-11 trap sequence: push PSW, push PC, then load
// PC and PSW from two consecutive words at vec (spec.md §4.5).
func (c *CPU) trapAt(vec uint16) {
	psw := c.psw
	if !c.push(psw) {
		c.log.Errorf("cpu: double bus error pushing PSW during trap %03o", vec)
		return
	}
	if !c.push(c.R[PC]) {
		c.log.Errorf("cpu: double bus error pushing PC during trap %03o", vec)
		return
	}
	newPC := c.bus.ReadWord(vec)
	newPSW := c.bus.ReadWord(vec + 2)
	if newPC.Fault || newPSW.Fault {
		c.log.Errorf("cpu: unmapped trap vector %03o", vec)
		return
	}
	c.R[PC] = newPC.Value
	c.psw = newPSW.Value
}
