package di

// pendingConstruction collects the arguments of one deferred action. The
// missing counter starts one above the number of slots so the action cannot
// fire while the slots are still being planned; release drops that guard.
type pendingConstruction struct {
	owner   string
	slots   []any
	missing int
	action  func(args []any) error
	fired   bool
}

func newPending(owner string, slots int, action func(args []any) error) *pendingConstruction {
	return &pendingConstruction{
		owner:   owner,
		slots:   make([]any, slots),
		missing: slots + 1,
		action:  action,
	}
}

// set places a value that was known up front and does not count as missing.
func (p *pendingConstruction) set(i int, v any) {
	p.slots[i] = v
	p.missing--
}

// fill places a resolved value and runs the action if it was the last one.
func (p *pendingConstruction) fill(i int, v any) error {
	p.slots[i] = v
	p.missing--
	return p.tryFire()
}

// release drops the planning guard.
func (p *pendingConstruction) release() error {
	p.missing--
	return p.tryFire()
}

func (p *pendingConstruction) ready() bool { return p.missing == 0 }

func (p *pendingConstruction) tryFire() error {
	if p.missing > 0 || p.fired {
		return nil
	}
	p.fired = true
	args := p.slots
	p.slots = nil
	return p.action(args)
}
