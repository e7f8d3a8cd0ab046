package lalr

// RecoveryInfo records one error and what recovery threw away to get past
// it. Discarded holds popped stack values (bottom first) followed by the
// skipped input tokens, ending with the synchronizing terminal.
type RecoveryInfo struct {
	State     int
	Lookahead Token
	Position  string
	Expected  []Terminal
	Discarded []Value
}

// recoverFrom runs error recovery for the current lookahead. On success the
// driver keeps running; on failure the run moves to Failed with a
// *SyntaxError. Every iteration pops a state, consumes a token or returns,
// so the loop is bounded by stack depth plus remaining input.
func (r *run) recoverFrom() error {
	g := r.tables.grammar
	state := r.stack.top()
	info := &RecoveryInfo{
		State:     state,
		Lookahead: r.lookahead,
		Position:  r.lex.DescribePosition(),
		Expected:  r.tables.Expected(state),
	}
	for {
		code := r.tables.Recovery(r.stack.top(), r.lookahead.Terminal())
		r.observe(Step{State: r.stack.top(), Lookahead: r.lookahead, Recovery: code, Recover: true})
		switch code.Kind() {
		case DiscardState:
			if r.stack.depth() <= 1 {
				r.fail(info, StackExhausted)
				return nil
			}
			v, err := r.stack.popOne()
			if err != nil {
				return err
			}
			info.Discarded = append([]Value{v}, info.Discarded...)
		case DiscardTerminal:
			if r.lookahead.Terminal() == g.eof {
				r.fail(info, EndOfInput)
				return nil
			}
			info.Discarded = append(info.Discarded, r.lookahead)
			if err := r.advance(); err != nil {
				return err
			}
			if r.lookahead.Terminal() == g.eof {
				r.fail(info, EndOfInput)
				return nil
			}
		case RecoverProduction:
			sync := r.lookahead
			info.Discarded = append(info.Discarded, sync)
			if err := r.reduce(code.Value(), info); err != nil {
				return err
			}
			log.Debugf("recovered with %s after discarding %d symbols", g.Production(code.Value()).Description, len(info.Discarded))
			if sync.Terminal() != g.eof {
				return r.advance()
			}
			return nil
		}
	}
}

func (r *run) fail(info *RecoveryInfo, reason FailureReason) {
	r.status = Failed
	r.err = &SyntaxError{
		Token:               info.Lookahead,
		Position:            info.Position,
		Expected:            info.Expected,
		ExpectedDescription: DescribeTerminals(r.tables.grammar, info.Expected),
		Reason:              reason,
		StoppedAt:           r.lookahead,
	}
}
