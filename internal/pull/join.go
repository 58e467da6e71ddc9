package pull

// join fires fn once every arm has fired. All arms must be created before
// the first one fires. Arms are idempotent, so a duplicate completion can
// never complete the join on behalf of another arm.
type join struct {
	remaining int
	fn        func()
}

func newJoin(fn func()) *join {
	return &join{fn: fn}
}

func (j *join) arm() func() {
	j.remaining++
	fired := false
	return func() {
		if fired {
			return
		}
		fired = true
		j.remaining--
		if j.remaining == 0 {
			j.fn()
		}
	}
}
