package engine

import (
	"context"
	"errors"
	"fmt"
)

type decision struct {
	shipID string
	resp   Response
	err    error
}

// pollAgent runs one agent and always delivers exactly one result on out
func pollAgent(ctx context.Context, shipID string, a Agent, in AgentContext, out chan<- decision) {
	d := decision{shipID: shipID}
	defer func() {
		if r := recover(); r != nil {
			d.err = fmt.Errorf("agent panic: %v", r)
		}
		out <- d
	}()
	d.resp, d.err = a.Decide(ctx, in)
}

// decide runs the decision phase for st and returns the instruction of
// every polled ship. Ships missing from the result idle.
func (e *Engine) decide(ctx context.Context, st *State, agents map[string]Agent) map[string]Instruction {
	tick := st.TimeElapsed
	instructions := make(map[string]Instruction, len(st.Ships))

	type job struct {
		ship  string
		agent Agent
		in    AgentContext
	}
	var jobs []job
	for _, ship := range st.Ships {
		if ship.Destroyed {
			continue
		}
		a, ok := agents[ship.ID]
		if !ok || a == nil {
			continue
		}
		ch := st.channel(ship.Team)
		cursor, seen := e.cursors[ship.ID]
		if !seen {
			cursor = -1
		}
		msgs := ch.ReadSince(cursor)
		payloads := make([]any, len(msgs))
		for i, m := range msgs {
			payloads[i] = m.Payload
		}
		e.cursors[ship.ID] = tick - 1

		jobs = append(jobs, job{
			ship:  ship.ID,
			agent: a,
			in: AgentContext{
				Stats:    ship.Clone(),
				Radar:    Radar(ship.Body(), ship.ID, st.Ships),
				Messages: payloads,
				Memory:   e.memory[ship.ID],
				Tick:     tick,
			},
		})
	}
	if len(jobs) == 0 {
		return instructions
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.DecisionTimeout)
	defer cancel()

	// buffered so that agents answering after the deadline never block
	results := make(chan decision, len(jobs))
	for _, j := range jobs {
		go pollAgent(ctx, j.ship, j.agent, j.in, results)
	}

	responses := make(map[string]Response, len(jobs))
	pending := len(jobs)
collect:
	for pending > 0 {
		select {
		case d := <-results:
			pending--
			if errors.Is(d.err, context.DeadlineExceeded) || errors.Is(d.err, context.Canceled) {
				continue
			}
			if d.err != nil {
				e.log.Warn().Err(d.err).Str("ship", d.shipID).Int64("tick", tick).Msg("agent decision failed")
				e.publish(Event{Kind: EventAgentError, Tick: tick, ShipID: d.shipID, Error: d.err.Error()})
				continue
			}
			responses[d.shipID] = d.resp
		case <-ctx.Done():
			e.log.Debug().Int("missing", pending).Int64("tick", tick).Msg("decision window closed")
			break collect
		}
	}

	// apply side effects in ship order so replays see the same channel log
	for _, j := range jobs {
		resp, ok := responses[j.ship]
		if !ok {
			continue
		}
		e.memory[j.ship] = resp.Memory
		if len(resp.Logs) > 0 {
			e.publish(Event{Kind: EventAgentLog, Tick: tick, ShipID: j.ship, Lines: resp.Logs})
		}
		if len(resp.Messages) > 0 {
			ch := st.channel(j.in.Stats.Team)
			for _, payload := range resp.Messages {
				ch.Send(tick, payload)
			}
		}
		if !resp.Instruction.Valid() {
			e.log.Warn().Str("ship", j.ship).Int64("tick", tick).Msg("invalid instruction, idling")
			continue
		}
		instructions[j.ship] = resp.Instruction
	}
	return instructions
}
