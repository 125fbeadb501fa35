package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"bugscope/internal/oracle"
	"bugscope/internal/proxy"
	"bugscope/internal/resolver"
	"bugscope/internal/search"
	"bugscope/internal/storage"
)

// DefaultRoundLimit bounds how many conversation rounds a session may take
// before giving up on precise localization.
const DefaultRoundLimit = 15

// Coordinator drives the retrieval conversation: it prompts the oracle,
// validates its output through the proxy, executes query calls against the
// backend, and resolves proposed bug locations. It owns the transcript and
// the round counter exclusively.
type Coordinator struct {
	oracle     oracle.Oracle
	validator  *proxy.Validator
	backend    *search.Backend
	resolver   *resolver.Resolver
	audit      storage.AuditStore
	outputDir  string
	roundLimit int
}

// Options configures a Coordinator. Audit and OutputDir are optional; when
// unset the corresponding diagnostics are skipped.
type Options struct {
	Oracle     oracle.Oracle
	Validator  *proxy.Validator
	Backend    *search.Backend
	Resolver   *resolver.Resolver
	Audit      storage.AuditStore
	OutputDir  string
	RoundLimit int
}

// NewCoordinator creates a coordinator for one retrieval session.
func NewCoordinator(opts Options) *Coordinator {
	limit := opts.RoundLimit
	if limit <= 0 {
		limit = DefaultRoundLimit
	}
	return &Coordinator{
		oracle:     opts.Oracle,
		validator:  opts.Validator,
		backend:    opts.Backend,
		resolver:   opts.Resolver,
		audit:      opts.Audit,
		outputDir:  opts.OutputDir,
		roundLimit: limit,
	}
}

// Outcome is the final state of one retrieval session. An empty Locations
// list means the session exhausted its budget without localizing the bug,
// which callers must treat as degraded, not fatal.
type Outcome struct {
	Locations  []resolver.BugLocation
	Transcript *oracle.Transcript
	Rounds     int
	Exhausted  bool
}

// Run drives the conversation until the oracle commits to resolvable bug
// locations or the round budget runs out. Cancellation is checked at the top
// of each round; a single round is never interrupted midway.
func (c *Coordinator) Run(ctx context.Context, issueText, faultHint, reproHint string) (*Outcome, error) {
	transcript := oracle.NewTranscript()
	transcript.AddSystem(systemPrompt)
	transcript.AddUser(IssuePrompt(issueText))
	if faultHint != "" {
		transcript.AddUser(faultHintPreamble + faultHint)
	}
	if reproHint != "" {
		transcript.AddUser(reproHintPreamble + reproHint)
	}
	transcript.AddUser(selectPrompt)

	var sessionID int64
	if c.audit != nil {
		id, err := c.audit.BeginSession(ctx, c.backend.ProjectRoot(), issueText)
		if err != nil {
			return nil, fmt.Errorf("begin audit session: %w", err)
		}
		sessionID = id
	}

	for round := 0; round < c.roundLimit; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.persistRound(ctx, sessionID, round, transcript)
		log.Printf("retrieval: starting round %d", round)

		resText, err := c.oracle.Chat(ctx, transcript.Messages())
		if err != nil {
			return nil, fmt.Errorf("oracle call in round %d: %w", round, err)
		}
		transcript.AddAssistant(resText)

		cmd, proxyThreads, err := c.validator.Extract(ctx, resText)
		if err != nil {
			return nil, fmt.Errorf("proxy extraction in round %d: %w", round, err)
		}
		c.dumpProxyThreads(round, proxyThreads)

		if cmd == nil {
			transcript.AddUser(invalidCallsMessage)
			continue
		}

		if len(cmd.Calls) == 0 {
			locations, err := c.resolveLocations(ctx, sessionID, round, resText, cmd.Locations)
			if err != nil {
				return nil, err
			}
			if len(locations) > 0 {
				c.persistRound(ctx, sessionID, round, transcript)
				return &Outcome{
					Locations:  locations,
					Transcript: transcript,
					Rounds:     round,
				}, nil
			}
			transcript.AddUser(unresolvedLocationsMessage)
			continue
		}

		observation := c.executeCalls(ctx, sessionID, round, cmd.Calls)
		transcript.AddUser(observation)

		transcript.AddUser(analyzePrompt)
		analysis, err := c.oracle.Chat(ctx, transcript.Messages())
		if err != nil {
			return nil, fmt.Errorf("oracle call in round %d: %w", round, err)
		}
		transcript.AddAssistant(analysis)

		transcript.AddUser(analyzeSelectPrompt)
	}

	log.Printf("retrieval: too many rounds, giving up on precise localization")
	c.persistRound(ctx, sessionID, c.roundLimit, transcript)
	return &Outcome{
		Transcript: transcript,
		Rounds:     c.roundLimit,
		Exhausted:  true,
	}, nil
}

// executeCalls runs validated query calls in order and collates their
// summaries into the observation for the next oracle turn. Arity is checked
// again at dispatch time.
func (c *Coordinator) executeCalls(ctx context.Context, sessionID int64, round int, calls []proxy.Call) string {
	var records []storage.CallRecord
	observation := ""
	for _, call := range calls {
		output, ok := c.dispatch(call)
		records = append(records, storage.CallRecord{Text: call.Raw, OK: ok})
		observation += fmt.Sprintf("Result of %s:\n\n", call.Raw)
		observation += output + "\n\n"
	}

	if c.audit != nil {
		if err := c.audit.SaveCalls(ctx, sessionID, round, records); err != nil {
			log.Printf("retrieval: failed to save calls for round %d: %v", round, err)
		}
	}
	c.dumpJSON(fmt.Sprintf("executed_calls_round_%d.json", round), records)
	return observation
}

func (c *Coordinator) dispatch(call proxy.Call) (string, bool) {
	prim, ok := search.Lookup(call.Name)
	if !ok {
		return fmt.Sprintf("The API call %s refers to an unknown search API.", call.Raw), false
	}
	if len(call.Args) != prim.Arity {
		return fmt.Sprintf("The API call %s has the wrong number of arguments.", call.Raw), false
	}
	output, _, found := prim.Run(c.backend, call.Args)
	return output, found
}

// resolveLocations turns proposed locations into line-bounded ones. The
// assistant narrative preceding the proposal carries the intended behavior.
func (c *Coordinator) resolveLocations(ctx context.Context, sessionID int64, round int, narrative string, proposed []proxy.Location) ([]resolver.BugLocation, error) {
	proposals := make([]resolver.Proposal, 0, len(proposed))
	for _, loc := range proposed {
		proposals = append(proposals, resolver.Proposal{
			File:             loc.File,
			Class:            loc.Class,
			Method:           loc.Method,
			IntendedBehavior: narrative,
		})
	}
	c.dumpJSON(fmt.Sprintf("bug_locations_proposed_round_%d.json", round), proposed)

	locations, err := c.resolver.ResolveAll(proposals)
	if err != nil {
		return nil, fmt.Errorf("resolving bug locations in round %d: %w", round, err)
	}
	if len(locations) == 0 {
		log.Printf("retrieval: could not retrieve code from any proposed location in round %d", round)
		return nil, nil
	}

	records := make([]storage.LocationRecord, 0, len(locations))
	for _, loc := range locations {
		records = append(records, storage.LocationRecord{
			RelFile:          loc.RelFile,
			Start:            loc.Start,
			End:              loc.End,
			ClassName:        loc.ClassName,
			MethodName:       loc.MethodName,
			IntendedBehavior: loc.IntendedBehavior,
		})
	}
	if c.audit != nil {
		if err := c.audit.SaveLocations(ctx, sessionID, records); err != nil {
			log.Printf("retrieval: failed to save locations: %v", err)
		}
	}
	if dump, err := storage.MarshalLocations(records); err == nil {
		c.dumpText("bug_locations_resolved.json", dump)
	}
	return locations, nil
}

// persistRound writes the transcript before the next oracle call so a crash
// never loses completed rounds.
func (c *Coordinator) persistRound(ctx context.Context, sessionID int64, round int, transcript *oracle.Transcript) {
	if c.outputDir != "" {
		path := filepath.Join(c.outputDir, fmt.Sprintf("conversation_round_%d.json", round))
		if err := transcript.SaveToFile(path); err != nil {
			log.Printf("retrieval: failed to save transcript for round %d: %v", round, err)
		}
	}
	if c.audit != nil {
		data, err := json.Marshal(transcript.Messages())
		if err == nil {
			err = c.audit.SaveRound(ctx, sessionID, round, string(data))
		}
		if err != nil {
			log.Printf("retrieval: failed to audit round %d: %v", round, err)
		}
	}
}

func (c *Coordinator) dumpProxyThreads(round int, threads []*oracle.Transcript) {
	if c.outputDir == "" || len(threads) == 0 {
		return
	}
	var messages [][]oracle.Message
	for _, thread := range threads {
		messages = append(messages, thread.Messages())
	}
	c.dumpJSON(fmt.Sprintf("agent_proxy_round_%d.json", round), messages)
}

func (c *Coordinator) dumpJSON(name string, v any) {
	if c.outputDir == "" {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("retrieval: failed to marshal %s: %v", name, err)
		return
	}
	c.dumpText(name, string(data))
}

func (c *Coordinator) dumpText(name, content string) {
	if c.outputDir == "" {
		return
	}
	path := filepath.Join(c.outputDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		log.Printf("retrieval: failed to write %s: %v", name, err)
	}
}
